package bootstrap

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"

	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// BuildCalendarService wires Google Calendar when selected and always keeps
// the in-memory simulation behind it.
func BuildCalendarService(ctx context.Context, cfg *appconfig.Config, m *metrics.AgentMetrics, logger *logging.Logger, opts ...option.ClientOption) (*calendar.Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		logger.Warn("unknown calendar timezone; using UTC", "timezone", cfg.CalendarTimezone, "error", err)
		loc = time.UTC
	}

	var primary calendar.Provider
	if cfg.CalendarProvider == "google" {
		if cfg.GoogleCredentialsPath != "" {
			opts = append([]option.ClientOption{option.WithCredentialsFile(cfg.GoogleCredentialsPath)}, opts...)
		}
		google, err := calendar.NewGoogleProvider(ctx, cfg.GoogleCalendarID, loc.String(), opts...)
		if err != nil {
			logger.Warn("google calendar unavailable; using simulation", "error", err)
		} else {
			primary = google
			logger.Info("calendar provider: google", "calendar_id", cfg.GoogleCalendarID, "timezone", loc.String())
		}
	}
	if primary == nil {
		logger.Info("calendar provider: simulated", "timezone", loc.String())
	}

	return calendar.NewService(primary, calendar.NewMemoryProvider(), calendar.Options{
		WorkingHoursStart: cfg.WorkingHoursStart,
		WorkingHoursEnd:   cfg.WorkingHoursEnd,
		StepMinutes:       cfg.SlotStepMinutes,
		MaxSlots:          cfg.MaxSlots,
		Location:          loc,
		Logger:            logger,
		Metrics:           m,
	}), nil
}

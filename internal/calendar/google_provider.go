package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	emailReminderMinutes = 24 * 60
	popupReminderMinutes = 10
)

// GoogleProvider talks to the Google Calendar v3 REST API.
type GoogleProvider struct {
	service    *gcal.Service
	calendarID string
	timezone   string
}

// NewGoogleProvider builds a provider from client options (credentials file,
// endpoint override, http client).
func NewGoogleProvider(ctx context.Context, calendarID, timezone string, opts ...option.ClientOption) (*GoogleProvider, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create google service: %w", err)
	}
	if strings.TrimSpace(calendarID) == "" {
		calendarID = "primary"
	}
	return &GoogleProvider{service: svc, calendarID: calendarID, timezone: timezone}, nil
}

func (p *GoogleProvider) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	var out []Event
	call := p.service.Events.List(p.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item == nil || item.Status == "cancelled" {
				continue
			}
			ev, err := fromGoogleEvent(item, timeMin.Location())
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: list google events: %w", err)
	}
	return out, nil
}

func (p *GoogleProvider) InsertEvent(ctx context.Context, event Event) (Event, error) {
	gev := &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start:       &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: p.timezone},
		End:         &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: p.timezone},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: emailReminderMinutes},
				{Method: "popup", Minutes: popupReminderMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, email := range event.Attendees {
		if strings.TrimSpace(email) == "" {
			continue
		}
		gev.Attendees = append(gev.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := p.service.Events.Insert(p.calendarID, gev).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("calendar: insert google event: %w", err)
	}
	event.ID = created.Id
	event.HTMLLink = created.HtmlLink
	return event, nil
}

func fromGoogleEvent(item *gcal.Event, loc *time.Location) (Event, error) {
	start, err := parseEventTime(item.Start, loc)
	if err != nil {
		return Event{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	end, err := parseEventTime(item.End, loc)
	if err != nil {
		return Event{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}
	ev := Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		HTMLLink:    item.HtmlLink,
	}
	for _, a := range item.Attendees {
		if a != nil && a.Email != "" {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
	}
	return ev, nil
}

// parseEventTime handles timed events (dateTime) and all-day events (date).
func parseEventTime(edt *gcal.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		if loc == nil {
			loc = time.UTC
		}
		return time.ParseInLocation("2006-01-02", edt.Date, loc)
	}
	return time.Time{}, errors.New("missing time")
}

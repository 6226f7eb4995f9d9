package agent

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekdays = map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	weekdayPattern   = regexp.MustCompile(`\b(` + weekdayAlternation + `)s?\b`)
	meridiemPattern  = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clock24Pattern   = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	durationNumberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(hours?|hrs?|minutes?|mins?)`)
)

// ResolveDay maps a day token to midnight of the target date in now's
// location. Weekdays mean the next occurrence strictly after today; anything
// unrecognised means tomorrow.
func ResolveDay(day string, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	lower := strings.ToLower(strings.TrimSpace(day))

	if d, err := time.ParseInLocation("2006-01-02", lower, now.Location()); err == nil {
		return d
	}
	switch {
	case strings.Contains(lower, "today"):
		return today
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1)
	case strings.Contains(lower, "weekend"):
		return nextWeekday(today, time.Saturday)
	}
	if m := weekdayPattern.FindStringSubmatch(lower); m != nil {
		return nextWeekday(today, weekdays[m[1]])
	}
	if strings.Contains(lower, "next week") {
		return today.AddDate(0, 0, 7)
	}
	return today.AddDate(0, 0, 1)
}

func nextWeekday(today time.Time, target time.Weekday) time.Time {
	ahead := (int(target) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

// ResolveClock maps a time token to an hour and minute. Unrecognised input
// means 9:00.
func ResolveClock(timeStr string) (hour, minute int) {
	lower := strings.ToLower(strings.TrimSpace(timeStr))

	if m := meridiemPattern.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if h >= 1 && h <= 12 && minute < 60 {
			switch {
			case m[3] == "pm" && h != 12:
				h += 12
			case m[3] == "am" && h == 12:
				h = 0
			}
			return h, minute
		}
		minute = 0
	}
	if m := clock24Pattern.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h, mm
	}

	switch {
	case strings.Contains(lower, "noon"):
		return 12, 0
	case strings.Contains(lower, "midnight"):
		return 0, 0
	case strings.Contains(lower, "afternoon"):
		return 14, 0
	case strings.Contains(lower, "evening"):
		return 18, 0
	case strings.Contains(lower, "morning"):
		return 9, 0
	}
	return 9, 0
}

// ResolveDuration converts a duration token to minutes, or fallback when the
// token is empty or unparseable.
func ResolveDuration(duration string, fallback int) time.Duration {
	if fallback <= 0 {
		fallback = 60
	}
	lower := strings.ToLower(strings.TrimSpace(duration))
	minutes := 0
	switch {
	case strings.Contains(lower, "half an hour"):
		minutes = 30
	case lower == "an hour" || strings.Contains(lower, "one hour"):
		minutes = 60
	default:
		if m := durationNumberRe.FindStringSubmatch(lower); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				if strings.HasPrefix(m[2], "h") {
					value *= 60
				}
				minutes = int(math.Round(value))
			}
		}
	}
	if minutes <= 0 || minutes > 8*60 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}

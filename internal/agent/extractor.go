package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wolfman30/calendar-booking-agent/internal/session"
)

// ExtractedInfo is the scheduling detail pulled from a message.
type ExtractedInfo = session.ExtractedInfo

const weekdayAlternation = "monday|tuesday|wednesday|thursday|friday|saturday|sunday"

var (
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`),
		regexp.MustCompile(`\b(?:[01]?\d|2[0-3]):[0-5]\d\b`),
		regexp.MustCompile(`\b(?:morning|afternoon|evening)\b`),
		regexp.MustCompile(`\b(?:noon|midnight)\b`),
	}
	dayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:today|tomorrow)\b`),
		regexp.MustCompile(`\bnext\s+(?:week|(?:` + weekdayAlternation + `)s?)\b`),
		regexp.MustCompile(`\b(?:` + weekdayAlternation + `)s?\b`),
		regexp.MustCompile(`\bthis\s+weekend\b`),
	}
	typePatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"call", regexp.MustCompile(`\bcalls?\b`)},
		{"meeting", regexp.MustCompile(`\bmeetings?\b`)},
		{"appointment", regexp.MustCompile(`\bappointments?\b`)},
		{"interview", regexp.MustCompile(`\binterviews?\b`)},
	}
	durationPattern = regexp.MustCompile(`\b(?:half an hour|an hour|\d+(?:\.\d+)?\s*(?:hours?|hrs?|minutes?|mins?))\b`)
)

// ExtractDetails asks the NLU for a JSON record and fills any gaps with regex
// extraction. Any NLU or parse failure returns the regex result alone.
func (p *Interpreter) ExtractDetails(ctx context.Context, message string) ExtractedInfo {
	fallback := RegexExtract(message)

	reply, err := p.prompt(ctx, "extract", extractPrompt(message))
	if err != nil {
		p.fallback(ctx, "extract", err)
		return fallback
	}
	info, err := ParseExtraction(reply)
	if err != nil {
		p.fallback(ctx, "extract", err)
		return fallback
	}
	return mergeExtraction(info, fallback)
}

// RegexExtract pulls day, time, type and duration tokens out of message.
// A time or day token sets HasTimeInfo.
func RegexExtract(message string) ExtractedInfo {
	lower := strings.ToLower(message)
	info := ExtractedInfo{Type: "meeting"}

	if m := firstMatch(timePatterns, lower); m != "" {
		info.Time = m
		info.HasTimeInfo = true
	}
	if m := firstMatch(dayPatterns, lower); m != "" {
		info.Day = strings.Join(strings.Fields(m), " ")
		info.HasTimeInfo = true
	}
	for _, tp := range typePatterns {
		if tp.re.MatchString(lower) {
			info.Type = tp.name
			break
		}
	}
	info.Duration = durationPattern.FindString(lower)
	return info
}

// ParseExtraction decodes an NLU reply, tolerating code fences, surrounding
// prose and non-string field values.
func ParseExtraction(reply string) (ExtractedInfo, error) {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ExtractedInfo{}, errors.New("extract: no json object in reply")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return ExtractedInfo{}, fmt.Errorf("extract: decode reply: %w", err)
	}

	info := ExtractedInfo{
		Day:      stringField(raw["day"]),
		Time:     stringField(raw["time"]),
		Type:     strings.ToLower(stringField(raw["type"])),
		Duration: stringField(raw["duration"]),
	}
	switch v := raw["has_time_info"].(type) {
	case bool:
		info.HasTimeInfo = v
	case string:
		info.HasTimeInfo, _ = strconv.ParseBool(v)
	}
	return info, nil
}

func mergeExtraction(primary, fallback ExtractedInfo) ExtractedInfo {
	if primary.Day == "" {
		primary.Day = fallback.Day
	}
	if primary.Time == "" {
		primary.Time = fallback.Time
	}
	if primary.Type == "" {
		primary.Type = fallback.Type
	}
	if primary.Duration == "" {
		primary.Duration = fallback.Duration
	}
	primary.HasTimeInfo = primary.HasTimeInfo || fallback.HasTimeInfo
	return primary
}

func firstMatch(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		if m := re.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func extractPrompt(message string) string {
	return fmt.Sprintf(`Extract scheduling details from the user message below.

Message: %q

Return one JSON object with these keys:
"has_time_info": true when the message mentions a day or time,
"day": the day as written (today, tomorrow, Friday, next week),
"time": the time as written (2 PM, afternoon, 10:30),
"type": call, meeting, appointment or interview,
"duration": the length as written (30 minutes, 1 hour).
Omit keys that are not mentioned. Return JSON only.`, message)
}

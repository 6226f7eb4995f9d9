package agent

import (
	"testing"
	"time"
)

// Monday 2 March 2026, 10:00 UTC.
var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestResolveDay(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"today", "2026-03-02"},
		{"Tomorrow", "2026-03-03"},
		{"monday", "2026-03-09"},
		{"Friday", "2026-03-06"},
		{"next friday", "2026-03-06"},
		{"next week", "2026-03-09"},
		{"this weekend", "2026-03-07"},
		{"2026-03-20", "2026-03-20"},
		{"", "2026-03-03"},
		{"someday", "2026-03-03"},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			got := ResolveDay(tt.day, testNow)
			if got.Format("2006-01-02") != tt.want {
				t.Fatalf("ResolveDay(%q) = %s, want %s", tt.day, got.Format("2006-01-02"), tt.want)
			}
			if got.Hour() != 0 || got.Minute() != 0 {
				t.Fatalf("expected midnight, got %s", got)
			}
		})
	}
}

func TestResolveDay_SameWeekdayMeansNextWeek(t *testing.T) {
	got := ResolveDay("monday", testNow)
	if got.Sub(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) != 7*24*time.Hour {
		t.Fatalf("expected a week ahead, got %s", got)
	}
}

func TestResolveDay_PluralWeekday(t *testing.T) {
	for _, day := range []string{"fridays", "next Fridays"} {
		got := ResolveDay(day, testNow)
		if !got.Equal(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("%q: expected Friday March 6, got %s", day, got)
		}
	}
}

func TestResolveClock(t *testing.T) {
	tests := []struct {
		in         string
		hour, mins int
	}{
		{"2 pm", 14, 0},
		{"2:30PM", 14, 30},
		{"12 am", 0, 0},
		{"12pm", 12, 0},
		{"9am", 9, 0},
		{"10:45", 10, 45},
		{"noon", 12, 0},
		{"midnight", 0, 0},
		{"afternoon", 14, 0},
		{"evening", 18, 0},
		{"morning", 9, 0},
		{"13 pm", 9, 0},
		{"", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m := ResolveClock(tt.in)
			if h != tt.hour || m != tt.mins {
				t.Fatalf("ResolveClock(%q) = %d:%02d, want %d:%02d", tt.in, h, m, tt.hour, tt.mins)
			}
		})
	}
}

func TestResolveDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30 minutes", 30 * time.Minute},
		{"45 mins", 45 * time.Minute},
		{"1.5 hours", 90 * time.Minute},
		{"2 hrs", 2 * time.Hour},
		{"half an hour", 30 * time.Minute},
		{"an hour", time.Hour},
		{"", 45 * time.Minute},
		{"0 min", 45 * time.Minute},
		{"20 hours", 45 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ResolveDuration(tt.in, 45); got != tt.want {
				t.Fatalf("ResolveDuration(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

package agent

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEventTitle(t *testing.T) {
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	tests := []struct {
		meetingType string
		want        string
	}{
		{"call", "Call - 02:00 PM"},
		{"", "Meeting - 02:00 PM"},
		{"éntrevista", "Éntrevista - 02:00 PM"},
		{"ǆemat", "ǅemat - 02:00 PM"},
	}
	for _, tt := range tests {
		got := eventTitle(tt.meetingType, start)
		assert.Equal(t, tt.want, got, tt.meetingType)
		assert.True(t, utf8.ValidString(got), tt.meetingType)
	}
}

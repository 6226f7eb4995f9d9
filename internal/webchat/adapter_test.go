package webchat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
)

func TestReplyFrameInlinesChatResponse(t *testing.T) {
	frame := replyFrame(&agent.ChatResponse{
		Response:  "Here are your free time slots",
		SessionID: "s1",
		Intent:    agent.IntentCheck,
	})

	raw, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "reply", decoded["type"])
	assert.Equal(t, "s1", decoded["session_id"])
	assert.Equal(t, "check_availability", decoded["intent"])
	assert.Equal(t, "Here are your free time slots", decoded["response"])
	assert.Equal(t, "Here are your free time slots", decoded["text"])
}

func TestPongFrameOmitsResponseFields(t *testing.T) {
	raw, err := json.Marshal(OutboundMessage{Type: framePong})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(raw))
}

func TestHistoryFromKeepsNewestTurns(t *testing.T) {
	sess := &session.Session{ID: "s1"}
	for _, text := range []string{"one", "two", "three"} {
		sess.Append("user", text)
	}

	history := historyFrom(sess, 2)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Text)
	assert.Equal(t, "three", history[1].Text)
	assert.Nil(t, historyFrom(nil, 10))
}

package webchat

import (
	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
)

// replyFrame wraps a chat response for the widget.
func replyFrame(resp *agent.ChatResponse) OutboundMessage {
	return OutboundMessage{
		Type:         frameReply,
		Text:         resp.Response,
		SessionID:    resp.SessionID,
		ChatResponse: resp,
	}
}

// historyFrom keeps the newest limit turns of a session, oldest first.
func historyFrom(sess *session.Session, limit int) []HistoryMessage {
	if sess == nil || len(sess.Messages) == 0 {
		return nil
	}
	msgs := sess.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{Role: m.Role, Text: m.Content})
	}
	return out
}

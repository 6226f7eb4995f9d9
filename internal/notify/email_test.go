package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{client: nil}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestSendGridSender_SendsAttachment(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v3/mail/send") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "agent@example.com", BaseURL: srv.URL}, logging.Discard())
	err := sender.Send(context.Background(), EmailMessage{
		To:          "guest@example.com",
		Subject:     "Confirmed",
		Body:        "See you",
		Attachments: []Attachment{{Filename: "invite.ics", ContentType: "text/calendar", Content: []byte("BEGIN:VCALENDAR")}},
		Tags:        map[string]string{"booking_id": "evt-9"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	attachments, ok := payload["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("expected one attachment, got %v", payload["attachments"])
	}
	att := attachments[0].(map[string]any)
	if att["filename"] != "invite.ics" || att["type"] != "text/calendar" {
		t.Fatalf("unexpected attachment %v", att)
	}
	personalizations := payload["personalizations"].([]any)
	args, _ := personalizations[0].(map[string]any)["custom_args"].(map[string]any)
	if args["booking_id"] != "evt-9" {
		t.Fatalf("expected booking_id custom arg, got %v", args)
	}
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", BaseURL: srv.URL}, logging.Discard())
	if err := sender.Send(context.Background(), EmailMessage{To: "a@example.com"}); err == nil {
		t.Fatal("expected error for 401")
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "agent@example.com"}, logging.Discard())

	if err := sender.Send(context.Background(), EmailMessage{To: "guest@example.com", Subject: "Hi", Body: "text"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Calendar Agent <agent@example.com>" {
		t.Fatalf("unexpected from %q", got)
	}
	if api.input.Content.Simple.Body.Text == nil || api.input.Content.Simple.Body.Html != nil {
		t.Fatal("expected text body only")
	}
	if api.input.ConfigurationSetName != nil || api.input.EmailTags != nil {
		t.Fatal("expected no configuration set or tags")
	}

	api.err = errors.New("throttled")
	if err := sender.Send(context.Background(), EmailMessage{To: "guest@example.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSESSender_TagsAndConfigurationSet(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "agent@example.com", FromName: "Bookings", ConfigurationSet: "agent-events"}, logging.Discard())

	err := sender.Send(context.Background(), EmailMessage{
		To:          "guest@example.com",
		Subject:     "Confirmed",
		HTML:        "<p>booked</p>",
		Attachments: []Attachment{{Filename: "invite.ics", Content: []byte("BEGIN:VCALENDAR")}},
		Tags:        map[string]string{"kind": "booking_confirmation", "booking_id": "sim-1 2"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Bookings <agent@example.com>" {
		t.Fatalf("unexpected from %q", got)
	}
	if got := aws.ToString(api.input.ConfigurationSetName); got != "agent-events" {
		t.Fatalf("unexpected configuration set %q", got)
	}
	if api.input.Content.Simple.Body.Html == nil || api.input.Content.Simple.Body.Text != nil {
		t.Fatal("expected html body only")
	}
	tags := api.input.EmailTags
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if aws.ToString(tags[0].Name) != "booking_id" || aws.ToString(tags[0].Value) != "sim-1_2" {
		t.Fatalf("unexpected first tag %s=%s", aws.ToString(tags[0].Name), aws.ToString(tags[0].Value))
	}
	if aws.ToString(tags[1].Name) != "kind" {
		t.Fatalf("tags not sorted: %s", aws.ToString(tags[1].Name))
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestBookingNotifier_NotifyBooked(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewBookingNotifier(sender, logging.Discard())
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	details := &calendar.BookingDetails{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Title:     "Call - 02:00 PM",
		BookingID: "evt-1",
		EventLink: "https://calendar.example/evt-1",
	}

	notifier.NotifyBooked(context.Background(), details, "Booked via Calendar Agent - call", []string{"a@example.com", " ", "b@example.com"})

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != "Confirmed: Call - 02:00 PM" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "https://calendar.example/evt-1") {
		t.Fatalf("expected event link in body: %q", msg.Body)
	}
	if msg.Tags["booking_id"] != "evt-1" || msg.Tags["kind"] != "booking_confirmation" {
		t.Fatalf("unexpected tags %v", msg.Tags)
	}
	if len(msg.Attachments) != 1 || !strings.Contains(string(msg.Attachments[0].Content), "BEGIN:VCALENDAR") {
		t.Fatalf("expected ics attachment, got %+v", msg.Attachments)
	}
}

func TestBookingNotifier_FailuresAreSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	notifier := NewBookingNotifier(sender, logging.Discard())
	details := &calendar.BookingDetails{StartTime: time.Now(), EndTime: time.Now().Add(time.Hour), Title: "Meeting"}

	notifier.NotifyBooked(context.Background(), details, "", []string{"a@example.com"})
	if len(sender.sent) != 1 {
		t.Fatalf("expected attempt, got %d", len(sender.sent))
	}

	var nilNotifier *BookingNotifier
	nilNotifier.NotifyBooked(context.Background(), details, "", []string{"a@example.com"})
	NewBookingNotifier(sender, nil).NotifyBooked(context.Background(), details, "", nil)
	if len(sender.sent) != 1 {
		t.Fatalf("expected no additional sends, got %d", len(sender.sent))
	}
}

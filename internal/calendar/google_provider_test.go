package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newGoogleTestProvider(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGoogleProvider(context.Background(), "", "UTC",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return p
}

func TestGoogleProvider_ListEvents(t *testing.T) {
	var query map[string][]string
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"id": "a", "summary": "Standup", "start": {"dateTime": "2026-03-03T09:00:00Z"}, "end": {"dateTime": "2026-03-03T09:30:00Z"}},
				{"id": "b", "status": "cancelled", "start": {"dateTime": "2026-03-03T10:00:00Z"}, "end": {"dateTime": "2026-03-03T11:00:00Z"}},
				{"id": "c", "summary": "Offsite", "start": {"date": "2026-03-03"}, "end": {"date": "2026-03-04"}}
			]
		}`))
	})

	min := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	events, err := p.ListEvents(context.Background(), min, min.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), events[0].End.UTC())
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), events[1].End)

	assert.Equal(t, []string{"true"}, query["singleEvents"])
	assert.Equal(t, []string{"startTime"}, query["orderBy"])
	assert.Equal(t, []string{"2026-03-03T09:00:00Z"}, query["timeMin"])
}

func TestGoogleProvider_InsertEvent(t *testing.T) {
	var body map[string]any
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "evt-42", "htmlLink": "https://calendar.google.com/event?eid=evt-42"}`))
	})

	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	created, err := p.InsertEvent(context.Background(), Event{
		Title:     "Call - 02:00 PM",
		Start:     start,
		End:       start.Add(time.Hour),
		Attendees: []string{"guest@example.com", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-42", created.ID)
	assert.Equal(t, "https://calendar.google.com/event?eid=evt-42", created.HTMLLink)

	assert.Equal(t, "Call - 02:00 PM", body["summary"])
	reminders, ok := body["reminders"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, reminders["useDefault"])
	overrides, ok := reminders["overrides"].([]any)
	require.True(t, ok)
	assert.Len(t, overrides, 2)
	attendees, ok := body["attendees"].([]any)
	require.True(t, ok)
	assert.Len(t, attendees, 1)
}

func TestGoogleProvider_InsertErrorIsWrapped(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	})

	_, err := p.InsertEvent(context.Background(), Event{Start: time.Now(), End: time.Now().Add(time.Hour)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert google event")
}

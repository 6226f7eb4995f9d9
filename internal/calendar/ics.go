package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const icsProductID = "-//Calendar Booking Agent//EN"

// EncodeICS renders a confirmed booking as a single-event iCalendar invite.
func EncodeICS(details *BookingDetails, description string, stamp time.Time) ([]byte, error) {
	if details == nil {
		return nil, errors.New("calendar: no booking details")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	event := ical.NewEvent()
	uid := details.BookingID
	if uid == "" {
		uid = fmt.Sprintf("%d@calendar-agent", details.StartTime.Unix())
	}
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, details.StartTime.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, details.EndTime.UTC())
	event.Props.SetText(ical.PropSummary, details.Title)
	if description != "" {
		event.Props.SetText(ical.PropDescription, description)
	}
	if details.EventLink != "" {
		event.Props.SetText(ical.PropURL, details.EventLink)
	}
	for _, email := range details.Attendees {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + email
		event.Props.Add(attendee)
	}
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("calendar: encode ics: %w", err)
	}
	return buf.Bytes(), nil
}

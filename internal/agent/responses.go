package agent

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
)

const (
	askForTimeReply = "I'd love to help you schedule that! When would you like to meet? For example: 'tomorrow at 2 PM' or 'Friday morning'."
	askForDayReply  = "I can check your availability! Which day are you interested in? For example: 'tomorrow', 'Friday', or 'next week'."
	greetingReply   = "Hi! I'm your calendar assistant. What would you like to schedule today?"
	helpReply       = "I can schedule meetings, check your availability, and book appointments. What would you like to schedule?"
	defaultReply    = "I'd be happy to help you schedule something! Try 'I want to schedule a call for tomorrow afternoon' or 'Do you have any free time this Friday?'"

	minConversationalReply = 10
)

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	helpWords     = []string{"help", "what", "how"}
)

// cannedReply answers general chat when the NLU is unavailable or terse.
func cannedReply(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	joined := " " + strings.Join(words, " ") + " "
	for _, w := range greetingWords {
		if strings.Contains(joined, " "+w+" ") {
			return greetingReply
		}
	}
	for _, w := range helpWords {
		if strings.Contains(joined, " "+w+" ") {
			return helpReply
		}
	}
	return defaultReply
}

func suggestSlotsReply(slots []calendar.Slot, meetingType string) string {
	if len(slots) == 0 {
		return "I couldn't find any available times. Would you like to try a different day?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are some available times for your %s:\n\n", meetingTypeOrDefault(meetingType))
	writeSlotList(&b, slots)
	b.WriteString("\nWhich time works best for you? Just reply with the number.")
	return b.String()
}

func availabilityReply(day string, slots []calendar.Slot) string {
	if day == "" {
		day = "that day"
	}
	if len(slots) == 0 {
		return fmt.Sprintf("Sorry, there are no free time slots for %s. Would you like to try a different day?", day)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are your free time slots for %s:\n\n", day)
	writeSlotList(&b, slots)
	b.WriteString("\nWould you like to book any of these times? Just reply with the number.")
	return b.String()
}

func writeSlotList(b *strings.Builder, slots []calendar.Slot) {
	for i, slot := range slots {
		fmt.Fprintf(b, "%d. %s\n", i+1, slot.Display)
	}
}

func conflictReply(start time.Time) string {
	return fmt.Sprintf("Sorry, %s on %s is already booked.", start.Format(calendar.DisplayLayout), start.Format("Monday, January 2"))
}

func selectionRangeReply(n int) string {
	if n == 1 {
		return "Please reply with 1 to pick the offered time."
	}
	return fmt.Sprintf("Please pick a number between 1 and %d for your preferred time.", n)
}

func selectedSlotReply(slot calendar.Slot, result calendar.BookingResult) string {
	return fmt.Sprintf("Perfect! You've selected %s. %s", slot.Display, result.Message)
}

func meetingTypeOrDefault(meetingType string) string {
	if strings.TrimSpace(meetingType) == "" {
		return "meeting"
	}
	return strings.ToLower(meetingType)
}

// eventTitle renders "Call - 02:00 PM".
func eventTitle(meetingType string, start time.Time) string {
	t := meetingTypeOrDefault(meetingType)
	r, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToTitle(r)) + t[size:] + " - " + start.Format(calendar.DisplayLayout)
}

func eventDescription(meetingType string) string {
	return "Booked via Calendar Agent - " + meetingTypeOrDefault(meetingType)
}

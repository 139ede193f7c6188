package handler

import (
	"fmt"
	"strings"
)

// noteLine is one candidate line of the deal note; it is emitted only when
// include is true
type noteLine struct {
	include bool
	text    string
}

// buildBookingNote renders the deal note for a booking. Optional form
// answers produce a line only when they are non-empty.
func buildBookingNote(booking BookingPayload, attendee Attendee) string {
	r := booking.Responses
	meetingURL := booking.MeetingURL()

	lines := []noteLine{
		{true, "Booking via Cal.com"},
		{true, "Event: " + booking.DisplayTitle()},
		{true, "Time: " + booking.StartTime},
		{meetingURL != "", "Meeting link: " + meetingURL},
		{true, fmt.Sprintf("Contact: %s (%s)", attendee.Name, attendee.Email)},
		{r.Role.String() != "", "Role: " + r.Role.String()},
		{r.Company.String() != "", "Organization: " + r.Company.String()},
		{r.CompanySize.String() != "", "Company size: " + r.CompanySize.String()},
		{r.Website.String() != "", "Website: " + r.Website.String()},
		{r.Notes.String() != "", "Notes: " + r.Notes.String()},
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.include {
			out = append(out, l.text)
		}
	}
	return strings.Join(out, "\n")
}

// buildActivityNote is the free-text note of the follow-up call
func buildActivityNote(booking BookingPayload) string {
	note := "Follow-up for Cal.com booking: " + booking.DisplayTitle()
	if u := booking.MeetingURL(); u != "" {
		note += "\nMeeting link: " + u
	}
	return note
}

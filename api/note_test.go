package handler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBooking(t *testing.T, raw string) BookingPayload {
	t.Helper()
	var payload CalWebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload.Payload
}

func TestBuildBookingNote_AllFields(t *testing.T) {
	booking := decodeBooking(t, `{"payload":{
		"title":"Discovery",
		"startTime":"2024-03-01T09:30:00Z",
		"attendees":[{"name":"Mario Rossi","email":"mario@example.it"}],
		"metadata":{"videoCallUrl":"https://meet.example/abc"},
		"responses":{
			"Azienda":{"value":"Rossi Srl"},
			"ruolo":{"value":"CTO"},
			"dimensioni_azienda":{"value":"11-50"},
			"sito_web":{"value":"https://rossi.it"},
			"notes":{"value":"Interested in the annual plan"}
		}}}`)

	note := buildBookingNote(booking, *booking.Attendees[0])

	assert.Equal(t, strings.Join([]string{
		"Booking via Cal.com",
		"Event: Discovery",
		"Time: 2024-03-01T09:30:00Z",
		"Meeting link: https://meet.example/abc",
		"Contact: Mario Rossi (mario@example.it)",
		"Role: CTO",
		"Organization: Rossi Srl",
		"Company size: 11-50",
		"Website: https://rossi.it",
		"Notes: Interested in the annual plan",
	}, "\n"), note)
}

func TestBuildBookingNote_OnlyCompanyAndNotes(t *testing.T) {
	booking := decodeBooking(t, `{"payload":{
		"title":"Intro Call",
		"startTime":"2024-01-10T15:00:00Z",
		"attendees":[{"name":"Jane Doe","email":"jane@acme.com"}],
		"responses":{"Azienda":{"value":"Acme"},"notes":{"value":"Call me after 5"}}}}`)

	note := buildBookingNote(booking, *booking.Attendees[0])

	assert.Contains(t, note, "Organization: Acme")
	assert.Contains(t, note, "Notes: Call me after 5")
	assert.NotContains(t, note, "Role:")
	assert.NotContains(t, note, "Company size:")
	assert.NotContains(t, note, "Website:")
	assert.NotContains(t, note, "Meeting link:")
	assert.Len(t, strings.Split(note, "\n"), 6)
}

func TestBuildBookingNote_DefaultTitleAndBlankAnswers(t *testing.T) {
	booking := decodeBooking(t, `{"payload":{
		"startTime":"2024-01-10T15:00:00Z",
		"attendees":[{"name":"Jane Doe","email":"jane@acme.com"}],
		"responses":{"ruolo":{"value":""},"sito_web":{"value":null}}}}`)

	note := buildBookingNote(booking, *booking.Attendees[0])

	assert.Contains(t, note, "Event: Cal.com Booking")
	assert.NotContains(t, note, "Role:")
	assert.NotContains(t, note, "Website:")
}

func TestResponseField_String(t *testing.T) {
	tests := []struct {
		name  string
		field *ResponseField
		want  string
	}{
		{"nil field", nil, ""},
		{"nil value", &ResponseField{}, ""},
		{"string", &ResponseField{Value: "Acme"}, "Acme"},
		{"string kept as sent", &ResponseField{Value: " Acme "}, " Acme "},
		{"list", &ResponseField{Value: []interface{}{"a", "", "b"}}, "a, b"},
		{"number", &ResponseField{Value: float64(42)}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.String())
		})
	}
}

func TestBuildActivityNote(t *testing.T) {
	withLink := BookingPayload{Title: "Demo"}
	withLink.Metadata.VideoCallURL = "https://meet.example/x"

	assert.Equal(t, "Follow-up for Cal.com booking: Demo\nMeeting link: https://meet.example/x", buildActivityNote(withLink))
	assert.Equal(t, "Follow-up for Cal.com booking: Cal.com Booking", buildActivityNote(BookingPayload{}))
}

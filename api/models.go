package handler

import (
	"fmt"
	"strings"
)

// DefaultBookingTitle is used when Cal.com sends a booking without a title
const DefaultBookingTitle = "Cal.com Booking"

// CalWebhookPayload represents the incoming Cal.com webhook data
type CalWebhookPayload struct {
	TriggerEvent string         `json:"triggerEvent"`
	CreatedAt    string         `json:"createdAt"`
	Payload      BookingPayload `json:"payload"`
}

// BookingPayload is the booking description nested under "payload"
type BookingPayload struct {
	ID        int         `json:"id,omitempty"`
	Title     string      `json:"title"`
	StartTime string      `json:"startTime"`
	EndTime   string      `json:"endTime,omitempty"`
	Attendees []*Attendee `json:"attendees"`
	Location  string      `json:"location,omitempty"`
	Metadata  struct {
		VideoCallURL string `json:"videoCallUrl,omitempty"`
	} `json:"metadata"`
	Responses BookingResponses `json:"responses"`
}

// Attendee is a booking participant
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookingResponses holds the custom booking form answers we care about.
// Field names follow the Cal.com form configured for the sales team.
type BookingResponses struct {
	Company     *ResponseField `json:"Azienda,omitempty"`
	Role        *ResponseField `json:"ruolo,omitempty"`
	CompanySize *ResponseField `json:"dimensioni_azienda,omitempty"`
	Website     *ResponseField `json:"sito_web,omitempty"`
	Notes       *ResponseField `json:"notes,omitempty"`
}

// ResponseField wraps a single form answer: {"value": ...}
type ResponseField struct {
	Value interface{} `json:"value"`
}

// String renders the answer as text. Multi-select answers arrive as lists.
func (f *ResponseField) String() string {
	if f == nil || f.Value == nil {
		return ""
	}
	switch v := f.Value.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// DisplayTitle returns the booking title or the default placeholder
func (b BookingPayload) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	return DefaultBookingTitle
}

// PrimaryAttendee returns the first attendee; only that one is synced.
// A null first entry counts as no attendee.
func (b BookingPayload) PrimaryAttendee() (Attendee, bool) {
	if len(b.Attendees) == 0 || b.Attendees[0] == nil {
		return Attendee{}, false
	}
	return *b.Attendees[0], true
}

// MeetingURL returns the video call link, if Cal.com provided one
func (b BookingPayload) MeetingURL() string {
	return b.Metadata.VideoCallURL
}

// SyncResult summarises what a booking produced in Pipedrive
type SyncResult struct {
	DealID    *int
	PersonID  int
	OrgID     *int
	OrgStatus OrgStatus
	// PersonCreated is false when an existing person was reused
	PersonCreated bool
	Warnings      []string
}

// OrgStatus distinguishes "no company given" from "company given but the
// organization could not be created"; both leave OrgID nil.
type OrgStatus string

const (
	OrgNotRequested OrgStatus = "not_requested"
	OrgCreated      OrgStatus = "created"
	OrgFailed       OrgStatus = "failed"
)

// WebhookResponse is the success body returned to Cal.com
type WebhookResponse struct {
	Success  bool     `json:"success"`
	DealID   *int     `json:"deal_id"`
	PersonID int      `json:"person_id"`
	OrgID    *int     `json:"org_id"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse is the body of every 4xx/5xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

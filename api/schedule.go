package handler

import (
	"fmt"
	"strings"
	"time"
)

// defaultMeetingLength applies when a booking has no usable end time
const defaultMeetingLength = 30 * time.Minute

// ActivitySchedule holds the date fields of the follow-up activity, in UTC
type ActivitySchedule struct {
	DueDate string // 2006-01-02
	DueTime string // 15:04
	// Duration carries the meeting's end time of day (15:04), which is what
	// the sales pipeline has always received in this field.
	Duration string
}

// ScheduleFromBooking derives the activity schedule from the booking times.
// startTime is required; endTime falls back to start + 30 minutes.
func ScheduleFromBooking(startTime, endTime string) (ActivitySchedule, error) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(startTime))
	if err != nil {
		return ActivitySchedule{}, fmt.Errorf("invalid startTime %q: %w", startTime, err)
	}
	start = start.UTC()

	end := start.Add(defaultMeetingLength)
	if endTime != "" {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(endTime)); err == nil {
			end = parsed.UTC()
		}
	}

	return ActivitySchedule{
		DueDate:  start.Format("2006-01-02"),
		DueTime:  start.Format("15:04"),
		Duration: end.Format("15:04"),
	}, nil
}

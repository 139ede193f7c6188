package handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Stage names one step of the booking sync
type Stage string

const (
	StageOrganization Stage = "organization"
	StagePersonSearch Stage = "person_search"
	StagePersonCreate Stage = "person_create"
	StageDeal         Stage = "deal"
	StageNote         Stage = "note"
	StageActivity     Stage = "activity"
)

// StageError reports the step at which a booking sync stopped
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// errNoID is returned when Pipedrive accepts a create but sends back no id
var errNoID = errors.New("pipedrive returned no id")

// BookingSynchronizer pushes a Cal.com booking into Pipedrive as
// organization, person, deal, note and activity
type BookingSynchronizer struct {
	crm        CRM
	pipelineID *int
	stageID    *int
	logger     *zap.Logger
}

// NewBookingSynchronizer creates a synchronizer writing deals into the
// configured pipeline and stage
func NewBookingSynchronizer(crm CRM, config *Config, logger *zap.Logger) *BookingSynchronizer {
	return &BookingSynchronizer{
		crm:        crm,
		pipelineID: config.PipelineID(),
		stageID:    config.StageID(),
		logger:     logger,
	}
}

// Sync runs the five steps in order. Each step only starts once the ones it
// depends on have finished; nothing runs concurrently and nothing is retried.
// The booking must have at least one attendee.
func (s *BookingSynchronizer) Sync(ctx context.Context, booking BookingPayload) (*SyncResult, error) {
	return s.sync(ctx, booking, s.logger)
}

func (s *BookingSynchronizer) sync(ctx context.Context, booking BookingPayload, log *zap.Logger) (*SyncResult, error) {
	attendee, ok := booking.PrimaryAttendee()
	if !ok {
		return nil, errors.New("booking has no attendee")
	}
	log = log.With(zap.String("attendee_email", attendee.Email))
	result := &SyncResult{}

	// 1. Organization
	result.OrgID, result.OrgStatus = s.createOrganization(ctx, booking.Responses.Company.String(), log)
	if result.OrgStatus == OrgFailed {
		result.Warnings = append(result.Warnings, "organization could not be created")
	}

	// 2. Person
	personID, created, err := s.resolvePerson(ctx, attendee, result.OrgID, log)
	if err != nil {
		return nil, err
	}
	result.PersonID = personID
	result.PersonCreated = created

	// 3. Deal
	dealID, err := s.crm.CreateDeal(ctx, DealInput{
		Title:      fmt.Sprintf("%s - %s", booking.DisplayTitle(), attendee.Name),
		PersonID:   personID,
		PipelineID: s.pipelineID,
		StageID:    s.stageID,
		OrgID:      result.OrgID,
	})
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		log.Warn("deal was not created", zap.Error(err))
	case err != nil:
		return nil, &StageError{Stage: StageDeal, Err: err}
	}
	if dealID == nil {
		log.Warn("no deal id, skipping note and activity", zap.Int("person_id", personID))
		result.Warnings = append(result.Warnings, "deal could not be created")
		return result, nil
	}
	result.DealID = dealID
	log.Info("created deal", zap.Int("deal_id", *dealID), zap.Int("person_id", personID))

	// 4. Note
	if _, err := s.crm.CreateNote(ctx, *dealID, buildBookingNote(booking, attendee)); err != nil {
		if !isRejected(err) {
			return nil, &StageError{Stage: StageNote, Err: err}
		}
		log.Warn("note was not created", zap.Int("deal_id", *dealID), zap.Error(err))
		result.Warnings = append(result.Warnings, "note could not be created")
	}

	// 5. Activity
	schedule, err := ScheduleFromBooking(booking.StartTime, booking.EndTime)
	if err != nil {
		return nil, &StageError{Stage: StageActivity, Err: err}
	}
	activityID, err := s.crm.CreateActivity(ctx, ActivityInput{
		Subject:  "Call - " + attendee.Name,
		Type:     "call",
		DealID:   *dealID,
		PersonID: personID,
		DueDate:  schedule.DueDate,
		DueTime:  schedule.DueTime,
		Duration: schedule.Duration,
		Note:     buildActivityNote(booking),
		Done:     0,
	})
	if err != nil {
		if !isRejected(err) {
			return nil, &StageError{Stage: StageActivity, Err: err}
		}
		log.Warn("activity was not created", zap.Int("deal_id", *dealID), zap.Error(err))
		result.Warnings = append(result.Warnings, "activity could not be created")
	} else if activityID != nil {
		log.Info("scheduled follow-up call",
			zap.Int("activity_id", *activityID),
			zap.String("due_date", schedule.DueDate),
			zap.String("due_time", schedule.DueTime),
		)
	}

	return result, nil
}

// isRejected reports whether Pipedrive answered but the answer was a non-2xx
// status or an unreadable body. Note and activity treat these as warnings;
// only transport failures stop the sync.
func isRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrUnreadableResponse)
}

// createOrganization creates an organization when a company name was given.
// A failure never stops the sync; it is reported as OrgFailed.
func (s *BookingSynchronizer) createOrganization(ctx context.Context, company string, log *zap.Logger) (*int, OrgStatus) {
	if company == "" {
		return nil, OrgNotRequested
	}

	orgID, err := s.crm.CreateOrganization(ctx, company)
	if err == nil && orgID == nil {
		err = errNoID
	}
	if err != nil {
		log.Warn("organization create failed, continuing without organization",
			zap.String("company", company),
			zap.Error(&StageError{Stage: StageOrganization, Err: err}),
		)
		return nil, OrgFailed
	}

	log.Info("created organization", zap.Int("org_id", *orgID), zap.String("company", company))
	return orgID, OrgCreated
}

// resolvePerson reuses the first person matching the attendee email, or
// creates one. It reports whether a new person was created.
func (s *BookingSynchronizer) resolvePerson(ctx context.Context, attendee Attendee, orgID *int, log *zap.Logger) (int, bool, error) {
	ids, err := s.crm.SearchPersonsByEmail(ctx, attendee.Email)
	if err != nil {
		return 0, false, &StageError{Stage: StagePersonSearch, Err: err}
	}
	if len(ids) > 0 {
		log.Info("found existing person", zap.Int("person_id", ids[0]))
		return ids[0], false, nil
	}

	personID, err := s.crm.CreatePerson(ctx, PersonInput{
		Name:  attendee.Name,
		Email: []PersonEmail{{Value: attendee.Email, Primary: true}},
		OrgID: orgID,
	})
	if err == nil && personID == nil {
		err = errNoID
	}
	if err != nil {
		return 0, false, &StageError{Stage: StagePersonCreate, Err: err}
	}

	log.Info("created person", zap.Int("person_id", *personID), zap.String("name", attendee.Name))
	return *personID, true, nil
}

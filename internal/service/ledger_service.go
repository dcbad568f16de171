package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

// LedgerService owns the attendance ledger: the single live status per
// (session, user) pair and the append-only audit trail behind it.
type LedgerService interface {
	SetStatus(ctx context.Context, actor Actor, sessionID, userID, statusID uint, remarks string, viaOnlineCheckin bool) (dto.LedgerEntryResponse, error)
	Take(ctx context.Context, actor Actor, sessionID uint, payload dto.TakeRequest) ([]dto.LedgerEntryResponse, error)
	SessionEntries(ctx context.Context, sessionID uint) ([]dto.LedgerEntryResponse, error)
	Logs(ctx context.Context, actor Actor, activityID uint, filter repository.ActionLogFilter) ([]dto.ActionLogResponse, int64, error)
}

type ledgerService struct {
	sessions  repository.SessionRepository
	statuses  repository.StatusRepository
	ledger    repository.LedgerRepository
	events    EventStream
	sanitizer *bluemonday.Policy
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLedgerService builds the attendance ledger service.
func NewLedgerService(sessions repository.SessionRepository, statuses repository.StatusRepository, ledger repository.LedgerRepository, events EventStream, validate *validator.Validate, logger zerolog.Logger) LedgerService {
	return &ledgerService{
		sessions:  sessions,
		statuses:  statuses,
		ledger:    ledger,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		validator: validate,
		logger:    logger.With().Str("component", "ledger_service").Logger(),
		now:       time.Now,
	}
}

// SetStatus assigns a status, appending an audit row in the same transaction
// as the ledger upsert. Writing the same status again is not suppressed: the
// audit trail records the old==new transition too.
func (s *ledgerService) SetStatus(ctx context.Context, actor Actor, sessionID, userID, statusID uint, remarks string, viaOnlineCheckin bool) (dto.LedgerEntryResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LedgerEntryResponse{}, ErrSessionNotFound
		}
		return dto.LedgerEntryResponse{}, err
	}

	status, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LedgerEntryResponse{}, ErrStatusNotFound
		}
		return dto.LedgerEntryResponse{}, err
	}
	if status.Deleted {
		return dto.LedgerEntryResponse{}, ErrStatusNotFound
	}
	if status.CourseActivityID != session.CourseActivityID || status.SetNumber != session.StatusSetNumber {
		return dto.LedgerEntryResponse{}, ErrStatusSetMismatch
	}

	now := s.now()

	selfEntry := viaOnlineCheckin || (actor.ID == userID && !actor.CanTakeAttendance)
	if selfEntry {
		// Staff may always back-mark; self-marking is confined to the live
		// session window unless the authorization context says otherwise.
		if !session.InProgress(now) && !actor.CanSelfMark {
			return dto.LedgerEntryResponse{}, ErrOutsideSessionWindow
		}
	} else if !actor.CanTakeAttendance {
		return dto.LedgerEntryResponse{}, ErrPermissionDenied
	}

	remarks = strings.TrimSpace(s.sanitizer.Sanitize(remarks))

	var applied models.LedgerEntry
	// One internal re-read-and-reapply on an optimistic collision; a second
	// collision surfaces as ErrConflict.
	for attempt := 0; attempt < 2; attempt++ {
		applied, err = s.applyOnce(ctx, actor, session, status, userID, remarks, viaOnlineCheckin, now)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return dto.LedgerEntryResponse{}, err
		}
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return dto.LedgerEntryResponse{}, ErrConflict
	}

	if session.LastTakenAt == nil {
		if err := s.sessions.StampTaken(ctx, session.ID, now, actor.ID); err != nil {
			s.logger.Warn().Err(err).Uint("session_id", session.ID).Msg("failed to stamp session as taken")
		}
	}

	s.events.Publish(ctx, dto.AttendanceEvent{
		Type:      dto.EventStatusSet,
		SessionID: sessionID,
		UserID:    userID,
		StatusID:  statusID,
		ActorID:   actor.ID,
		Message:   status.Acronym,
		At:        now,
	})

	s.logger.Info().
		Uint("session_id", sessionID).
		Uint("user_id", userID).
		Uint("status_id", statusID).
		Bool("via_online_checkin", viaOnlineCheckin).
		Msg("attendance status set")

	return dto.NewLedgerEntryResponse(applied), nil
}

func (s *ledgerService) applyOnce(ctx context.Context, actor Actor, session models.Session, status models.Status, userID uint, remarks string, viaOnlineCheckin bool, now time.Time) (models.LedgerEntry, error) {
	entry, err := s.ledger.GetEntry(ctx, session.ID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LedgerEntry{}, err
	}

	var oldStatusID *uint
	oldLabel := "unmarked"
	if entry.ID != 0 {
		previous := entry.StatusID
		oldStatusID = &previous
		if old, lookupErr := s.statuses.GetByID(ctx, previous); lookupErr == nil {
			oldLabel = old.Description
		}
	}

	entry.SessionID = session.ID
	entry.UserID = userID
	entry.StatusID = status.ID
	entry.RecordedAt = now
	entry.RecordedBy = actor.ID
	entry.Remarks = remarks
	entry.ViaOnlineCheckin = viaOnlineCheckin
	if viaOnlineCheckin {
		checkin := now
		entry.CheckinAt = &checkin
	}

	log := models.ActionLog{
		SessionID:   session.ID,
		UserID:      userID,
		ActorID:     actor.ID,
		OldStatusID: oldStatusID,
		NewStatusID: status.ID,
		TakenAt:     now,
		Description: fmt.Sprintf("actor %d changed status of user %d from %q to %q", actor.ID, userID, oldLabel, status.Description),
	}

	if err := s.ledger.ApplyStatus(ctx, &entry, &log); err != nil {
		return models.LedgerEntry{}, err
	}

	return entry, nil
}

// Take applies a bulk marking form in roster order, stopping at the first
// failing row.
func (s *ledgerService) Take(ctx context.Context, actor Actor, sessionID uint, payload dto.TakeRequest) ([]dto.LedgerEntryResponse, error) {
	if !actor.CanTakeAttendance {
		return nil, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	responses := make([]dto.LedgerEntryResponse, 0, len(payload.Entries))
	for _, row := range payload.Entries {
		response, err := s.SetStatus(ctx, actor, sessionID, row.UserID, row.StatusID, row.Remarks, false)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", row.UserID, err)
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *ledgerService) SessionEntries(ctx context.Context, sessionID uint) ([]dto.LedgerEntryResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	entries, err := s.ledger.EntriesForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return dto.NewLedgerEntryResponseSlice(entries), nil
}

func (s *ledgerService) Logs(ctx context.Context, actor Actor, activityID uint, filter repository.ActionLogFilter) ([]dto.ActionLogResponse, int64, error) {
	if !actor.CanManageAttendance {
		return nil, 0, ErrPermissionDenied
	}

	logs, total, err := s.ledger.Logs(ctx, activityID, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewActionLogResponseSlice(logs), total, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

// SessionService owns the session registry: scheduling, editing, hiding, and
// the online checkin window lifecycle.
type SessionService interface {
	Create(ctx context.Context, actor Actor, activityID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	List(ctx context.Context, actor Actor, activityID uint, filter repository.SessionFilter) ([]dto.SessionResponse, int64, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SessionUpdateRequest) (dto.SessionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	OpenCheckinWindow(ctx context.Context, actor Actor, id uint, payload dto.OpenCheckinWindowRequest) (dto.SessionResponse, error)
}

type sessionService struct {
	sessions  repository.SessionRepository
	statuses  repository.StatusRepository
	ledger    repository.LedgerRepository
	events    EventStream
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionService builds the session registry service.
func NewSessionService(sessions repository.SessionRepository, statuses repository.StatusRepository, ledger repository.LedgerRepository, events EventStream, validate *validator.Validate, logger zerolog.Logger) SessionService {
	return &sessionService{
		sessions:  sessions,
		statuses:  statuses,
		ledger:    ledger,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, actor Actor, activityID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if !actor.CanManageAttendance {
		return dto.SessionResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	start, err := time.Parse(time.RFC3339, payload.StartTime)
	if err != nil {
		return dto.SessionResponse{}, fmt.Errorf("invalid start time: %w", err)
	}

	setNumber := 0
	if payload.StatusSetNumber != nil {
		setNumber = *payload.StatusSetNumber
	} else {
		setNumber, err = s.statuses.MaxSetNumber(ctx, activityID)
		if err != nil {
			return dto.SessionResponse{}, err
		}
	}

	session := models.Session{
		CourseActivityID: activityID,
		StartTime:        start,
		DurationSeconds:  payload.DurationSeconds,
		GroupID:          payload.GroupID,
		Description:      payload.Description,
		StatusSetNumber:  setNumber,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("session_id", session.ID).Uint("activity_id", activityID).Msg("session created")

	return dto.NewSessionResponse(session, s.now()), nil
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session, s.now()), nil
}

func (s *sessionService) List(ctx context.Context, actor Actor, activityID uint, filter repository.SessionFilter) ([]dto.SessionResponse, int64, error) {
	if !actor.Staff() {
		filter.IncludeHidden = false
	}

	sessions, total, err := s.sessions.ListByActivity(ctx, activityID, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewSessionResponseSlice(sessions, s.now()), total, nil
}

func (s *sessionService) Update(ctx context.Context, actor Actor, id uint, payload dto.SessionUpdateRequest) (dto.SessionResponse, error) {
	if !actor.CanManageAttendance {
		return dto.SessionResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	if payload.Description != nil {
		session.Description = *payload.Description
	}
	if payload.DurationSeconds != nil {
		session.DurationSeconds = *payload.DurationSeconds
	}
	if payload.Hidden != nil {
		session.Hidden = *payload.Hidden
	}

	if err := s.sessions.Update(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("session_id", session.ID).Msg("session updated")

	return dto.NewSessionResponse(session, s.now()), nil
}

// Delete hides a session that still carries ledger entries; only sessions
// nothing references are physically removed.
func (s *sessionService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.CanManageAttendance {
		return ErrPermissionDenied
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	referenced, err := s.ledger.SessionHasEntries(ctx, id)
	if err != nil {
		return err
	}

	if referenced {
		session.Hidden = true
		if err := s.sessions.Update(ctx, &session); err != nil {
			return err
		}
		s.logger.Info().Uint("session_id", id).Msg("session hidden")
		return nil
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("session_id", id).Msg("session deleted")
	return nil
}

func (s *sessionService) OpenCheckinWindow(ctx context.Context, actor Actor, id uint, payload dto.OpenCheckinWindowRequest) (dto.SessionResponse, error) {
	if !actor.CanTakeAttendance {
		return dto.SessionResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	now := s.now()
	if session.Past(now) {
		return dto.SessionResponse{}, ErrInvalidWindow
	}
	if session.CheckinWindowOpen(now) {
		return dto.SessionResponse{}, ErrInvalidWindow
	}

	// CAS on the previous opensAt value; a concurrent open on the same
	// session loses and is rejected.
	err = s.sessions.StampCheckinWindow(ctx, id, session.CheckinOpensAt, now, payload.DurationSeconds)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return dto.SessionResponse{}, ErrInvalidWindow
		}
		return dto.SessionResponse{}, err
	}

	session.CheckinOpensAt = &now
	session.CheckinDuration = payload.DurationSeconds

	s.events.Publish(ctx, dto.AttendanceEvent{
		Type:      dto.EventWindowOpened,
		SessionID: session.ID,
		ActorID:   actor.ID,
		At:        now,
	})

	s.logger.Info().
		Uint("session_id", session.ID).
		Int("duration_seconds", payload.DurationSeconds).
		Msg("online checkin window opened")

	return dto.NewSessionResponse(session, now), nil
}

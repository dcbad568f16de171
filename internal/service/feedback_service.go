package service

import (
	"context"
	"errors"
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

// FeedbackService manages disputes over recorded statuses and their
// resolution by staff.
type FeedbackService interface {
	Raise(ctx context.Context, actor Actor, payload dto.FeedbackCreateRequest) (dto.FeedbackResponse, error)
	Resolve(ctx context.Context, actor Actor, feedbackID uint, payload dto.FeedbackResolveRequest) (dto.FeedbackResponse, error)
	List(ctx context.Context, actor Actor, filter repository.FeedbackFilter) ([]dto.FeedbackResponse, int64, error)
}

type feedbackService struct {
	feedback  repository.FeedbackRepository
	sessions  repository.SessionRepository
	ledger    LedgerService
	sanitizer *bluemonday.Policy
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFeedbackService builds the dispute service.
func NewFeedbackService(feedback repository.FeedbackRepository, sessions repository.SessionRepository, ledger LedgerService, validate *validator.Validate, logger zerolog.Logger) FeedbackService {
	return &feedbackService{
		feedback:  feedback,
		sessions:  sessions,
		ledger:    ledger,
		sanitizer: bluemonday.StrictPolicy(),
		validator: validate,
		logger:    logger.With().Str("component", "feedback_service").Logger(),
		now:       time.Now,
	}
}

// Raise opens a dispute against a session's recorded status. A student raises
// disputes for themselves only; staff may raise one on a student's behalf.
func (s *feedbackService) Raise(ctx context.Context, actor Actor, payload dto.FeedbackCreateRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	if _, err := s.sessions.GetByID(ctx, payload.SessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrSessionNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	userID := payload.UserID
	if userID == 0 {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.CanTakeAttendance {
		return dto.FeedbackResponse{}, ErrPermissionDenied
	}

	entry := models.FeedbackEntry{
		SessionID:   payload.SessionID,
		UserID:      userID,
		RaisedBy:    actor.ID,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Image:       payload.Image,
	}
	if err := s.feedback.Create(ctx, &entry); err != nil {
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().
		Uint("feedback_id", entry.ID).
		Uint("session_id", entry.SessionID).
		Uint("user_id", entry.UserID).
		Msg("attendance dispute raised")

	return dto.NewFeedbackResponse(entry), nil
}

// Resolve closes a dispute by writing the corrected status through the
// ledger, so the resolution shows up in the audit trail like any other change.
func (s *feedbackService) Resolve(ctx context.Context, actor Actor, feedbackID uint, payload dto.FeedbackResolveRequest) (dto.FeedbackResponse, error) {
	if !actor.CanManageAttendance {
		return dto.FeedbackResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	entry, err := s.feedback.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}
	if entry.Resolved() {
		return dto.FeedbackResponse{}, ErrConflict
	}

	if _, err := s.ledger.SetStatus(ctx, actor, entry.SessionID, entry.UserID, payload.StatusID, "", false); err != nil {
		return dto.FeedbackResponse{}, err
	}

	now := s.now()
	entry.ResolvedStatusID = &payload.StatusID
	entry.ResolvedBy = &actor.ID
	entry.ResolvedAt = &now
	if err := s.feedback.Update(ctx, &entry); err != nil {
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().
		Uint("feedback_id", entry.ID).
		Uint("status_id", payload.StatusID).
		Uint("actor_id", actor.ID).
		Msg("attendance dispute resolved")

	return dto.NewFeedbackResponse(entry), nil
}

// List returns disputes. Students see only their own resolved entries; staff
// see everything the filter selects.
func (s *feedbackService) List(ctx context.Context, actor Actor, filter repository.FeedbackFilter) ([]dto.FeedbackResponse, int64, error) {
	if !actor.Staff() {
		filter.UserID = actor.ID
		filter.ResolvedOnly = true
	}

	entries, total, err := s.feedback.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return dto.NewFeedbackResponseSlice(entries), total, nil
}

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/pkg/facematch"
)

// CheckinService drives the online checkin flow: issuing single-use
// credentials inside an open window and turning accepted face verifications
// into ledger entries.
type CheckinService interface {
	IssueCredential(ctx context.Context, actor Actor, sessionID uint) (dto.CredentialResponse, error)
	SubmitVerification(ctx context.Context, actor Actor, payload dto.SubmitCheckinRequest) (dto.CheckinResultResponse, error)
	Images(ctx context.Context, actor Actor, sessionID, userID uint) ([]dto.CheckinImageResponse, error)
}

type checkinService struct {
	sessions    repository.SessionRepository
	statuses    repository.StatusRepository
	credentials repository.CredentialRepository
	ledger      LedgerService
	verifier    facematch.Verifier
	events      EventStream
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCheckinService builds the online checkin service.
func NewCheckinService(sessions repository.SessionRepository, statuses repository.StatusRepository, credentials repository.CredentialRepository, ledger LedgerService, verifier facematch.Verifier, events EventStream, validate *validator.Validate, logger zerolog.Logger) CheckinService {
	return &checkinService{
		sessions:    sessions,
		statuses:    statuses,
		credentials: credentials,
		ledger:      ledger,
		verifier:    verifier,
		events:      events,
		validator:   validate,
		tracer:      otel.Tracer("attendance.checkin"),
		logger:      logger.With().Str("component", "checkin_service").Logger(),
		now:         time.Now,
	}
}

// IssueCredential hands out a single-use token for the caller's own checkin
// attempt. At most one live credential exists per (session, user) pair; the
// token expires with the checkin window, whichever comes first.
func (s *checkinService) IssueCredential(ctx context.Context, actor Actor, sessionID uint) (dto.CredentialResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CredentialResponse{}, ErrSessionNotFound
		}
		return dto.CredentialResponse{}, err
	}

	now := s.now()
	if !session.CheckinWindowOpen(now) {
		if session.CheckinOpensAt != nil {
			return dto.CredentialResponse{}, ErrWindowClosed
		}
		return dto.CredentialResponse{}, ErrInvalidWindow
	}

	if existing, err := s.credentials.LiveForPair(ctx, sessionID, actor.ID, now); err == nil && existing.ID != 0 {
		return dto.CredentialResponse{}, ErrAlreadyIssued
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CredentialResponse{}, err
	}

	windowEnd, _ := session.CheckinWindowEnd()

	credential := models.CheckinCredential{
		SessionID: sessionID,
		UserID:    actor.ID,
		Token:     uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: windowEnd,
	}
	if err := s.credentials.Issue(ctx, &credential); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return dto.CredentialResponse{}, ErrAlreadyIssued
		}
		return dto.CredentialResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", sessionID).
		Uint("user_id", actor.ID).
		Time("expires_at", credential.ExpiresAt).
		Msg("checkin credential issued")

	return dto.NewCredentialResponse(credential, now), nil
}

// SubmitVerification spends a credential on one face-verification attempt.
// Every completed attempt consumes the credential, accepted or not; only
// transport-level failures still consume it while surfacing
// ErrVerificationFailed so the caller knows no verdict was reached.
func (s *checkinService) SubmitVerification(ctx context.Context, actor Actor, payload dto.SubmitCheckinRequest) (dto.CheckinResultResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CheckinResultResponse{}, err
	}

	credential, err := s.credentials.GetByToken(ctx, payload.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckinResultResponse{}, ErrCredentialNotFound
		}
		return dto.CheckinResultResponse{}, err
	}
	if credential.UserID != actor.ID {
		return dto.CheckinResultResponse{}, ErrPermissionDenied
	}
	if credential.Consumed {
		return dto.CheckinResultResponse{}, ErrCredentialConsumed
	}

	now := s.now()
	if credential.Expired(now) {
		return dto.CheckinResultResponse{}, ErrWindowClosed
	}

	for _, image := range []string{payload.ImageFront, payload.ImageLeft, payload.ImageRight} {
		if err := validateCaptureImage(image); err != nil {
			return dto.CheckinResultResponse{}, err
		}
	}

	ctx, span := s.tracer.Start(ctx, "checkin.verify",
		trace.WithAttributes(
			attribute.Int64("session.id", int64(credential.SessionID)),
			attribute.Int64("user.id", int64(credential.UserID)),
		))
	verdict, verifyErr := s.verifier.Verify(ctx, facematch.VerifyRequest{
		SessionID:  credential.SessionID,
		UserID:     credential.UserID,
		ImageFront: payload.ImageFront,
		ImageLeft:  payload.ImageLeft,
		ImageRight: payload.ImageRight,
	})
	span.End()

	credential.Consumed = true
	credential.ConsumedAt = &now
	if verifyErr == nil {
		credential.Accepted = verdict.Accepted()
		credential.Result = datatypes.JSONMap{
			"status":  verdict.Status,
			"message": verdict.Message,
		}
	} else {
		credential.Result = datatypes.JSONMap{
			"error": verifyErr.Error(),
		}
	}
	if err := s.credentials.Update(ctx, &credential); err != nil {
		return dto.CheckinResultResponse{}, err
	}

	images := models.CheckinImage{
		SessionID:  credential.SessionID,
		UserID:     credential.UserID,
		ImageFront: payload.ImageFront,
		ImageLeft:  payload.ImageLeft,
		ImageRight: payload.ImageRight,
		TakenAt:    now,
		Accepted:   verifyErr == nil && verdict.Accepted(),
	}
	if err := s.credentials.SaveImages(ctx, &images); err != nil {
		s.logger.Warn().Err(err).Uint("session_id", credential.SessionID).Msg("failed to store checkin captures")
	}

	if verifyErr != nil {
		s.logger.Error().Err(verifyErr).
			Uint("session_id", credential.SessionID).
			Uint("user_id", credential.UserID).
			Msg("face verification did not complete")
		return dto.CheckinResultResponse{}, ErrVerificationFailed
	}

	if !verdict.Accepted() {
		s.events.Publish(ctx, dto.AttendanceEvent{
			Type:      dto.EventCheckinRejected,
			SessionID: credential.SessionID,
			UserID:    credential.UserID,
			ActorID:   credential.UserID,
			Message:   verdict.Message,
			At:        now,
		})
		return dto.CheckinResultResponse{Accepted: false, Message: verdict.Message}, nil
	}

	status, err := s.selfCheckinStatus(ctx, credential.SessionID)
	if err != nil {
		return dto.CheckinResultResponse{}, err
	}

	// The credential already proved the window was open when the attempt
	// started, so the ledger write must not re-fail on timing.
	self := actor
	self.CanSelfMark = true
	entry, err := s.ledger.SetStatus(ctx, self, credential.SessionID, credential.UserID, status.ID, "", true)
	if err != nil {
		return dto.CheckinResultResponse{}, err
	}

	s.events.Publish(ctx, dto.AttendanceEvent{
		Type:      dto.EventCheckinAccepted,
		SessionID: credential.SessionID,
		UserID:    credential.UserID,
		StatusID:  status.ID,
		ActorID:   credential.UserID,
		Message:   verdict.Message,
		At:        now,
	})

	return dto.CheckinResultResponse{Accepted: true, Message: verdict.Message, Entry: &entry}, nil
}

// selfCheckinStatus resolves the status a successful verification records:
// the self-checkin-flagged status of the session's active set.
func (s *checkinService) selfCheckinStatus(ctx context.Context, sessionID uint) (models.Status, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Status{}, ErrSessionNotFound
		}
		return models.Status{}, err
	}

	set, err := s.statuses.ListSet(ctx, session.CourseActivityID, session.StatusSetNumber)
	if err != nil {
		return models.Status{}, err
	}
	for _, status := range set {
		if status.Active() && status.SelfCheckin {
			return status, nil
		}
	}

	return models.Status{}, ErrNoSelfCheckinStatus
}

// Images lists stored capture triples for staff review.
func (s *checkinService) Images(ctx context.Context, actor Actor, sessionID, userID uint) ([]dto.CheckinImageResponse, error) {
	if !actor.CanTakeAttendance {
		return nil, ErrPermissionDenied
	}

	images, err := s.credentials.ImagesForPair(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewCheckinImageResponseSlice(images), nil
}

// validateCaptureImage accepts a data-URI or bare base64 payload and verifies
// the decoded bytes sniff as an image.
func validateCaptureImage(raw string) error {
	encoded := raw
	if strings.HasPrefix(raw, "data:") {
		_, after, found := strings.Cut(raw, ",")
		if !found {
			return ErrInvalidImage
		}
		encoded = after
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrInvalidImage
	}

	detected := mimetype.Detect(decoded)
	if !strings.HasPrefix(detected.String(), "image/") {
		return ErrInvalidImage
	}

	return nil
}

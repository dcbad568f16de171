package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/dto"
	"github.com/rollcall-io/attendance-api/internal/models"
	"github.com/rollcall-io/attendance-api/internal/repository"
)

// StatusService manages the versioned status sets of a course activity.
type StatusService interface {
	Add(ctx context.Context, actor Actor, activityID uint, payload dto.StatusCreateRequest) (dto.StatusResponse, error)
	Hide(ctx context.Context, actor Actor, id uint) (dto.StatusResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	CloneAsNewSet(ctx context.Context, actor Actor, activityID uint) ([]dto.StatusResponse, error)
	SeedDefaults(ctx context.Context, actor Actor, activityID uint) ([]dto.StatusResponse, error)
	List(ctx context.Context, activityID uint, setNumber *int) ([]dto.StatusResponse, error)
}

type statusService struct {
	statuses  repository.StatusRepository
	ledger    repository.LedgerRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStatusService builds the status set manager.
func NewStatusService(statuses repository.StatusRepository, ledger repository.LedgerRepository, validate *validator.Validate, logger zerolog.Logger) StatusService {
	return &statusService{
		statuses:  statuses,
		ledger:    ledger,
		validator: validate,
		logger:    logger.With().Str("component", "status_service").Logger(),
		now:       time.Now,
	}
}

func (s *statusService) Add(ctx context.Context, actor Actor, activityID uint, payload dto.StatusCreateRequest) (dto.StatusResponse, error) {
	if !actor.CanManageAttendance {
		return dto.StatusResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.StatusResponse{}, err
	}

	acronym := strings.TrimSpace(payload.Acronym)
	if acronym == "" {
		return dto.StatusResponse{}, ErrAcronymTooLong
	}
	// No fixed-index fallback table: a too-long acronym is the caller's
	// problem to fix, not ours to guess around.
	if utf8.RuneCountInString(acronym) > models.MaxAcronymLength {
		return dto.StatusResponse{}, ErrAcronymTooLong
	}

	setNumber := 0
	if payload.SetNumber != nil {
		setNumber = *payload.SetNumber
	} else {
		current, err := s.statuses.MaxSetNumber(ctx, activityID)
		if err != nil {
			return dto.StatusResponse{}, err
		}
		setNumber = current
	}

	existing, err := s.statuses.ListSet(ctx, activityID, setNumber)
	if err != nil {
		return dto.StatusResponse{}, err
	}

	for _, status := range existing {
		if status.Active() && strings.EqualFold(status.Acronym, acronym) {
			return dto.StatusResponse{}, ErrDuplicateAcronym
		}
	}

	// At most one status per set feeds online checkin.
	if payload.SelfCheckin {
		for _, status := range existing {
			if status.SelfCheckin && !status.Deleted {
				status.SelfCheckin = false
				if err := s.statuses.Update(ctx, &status); err != nil {
					return dto.StatusResponse{}, err
				}
			}
		}
	}

	status := models.Status{
		CourseActivityID: activityID,
		SetNumber:        setNumber,
		Acronym:          acronym,
		Description:      payload.Description,
		Points:           payload.Points,
		SelfCheckin:      payload.SelfCheckin,
		Visible:          true,
	}

	if err := s.statuses.Create(ctx, &status); err != nil {
		return dto.StatusResponse{}, err
	}

	s.logger.Info().
		Uint("status_id", status.ID).
		Str("acronym", status.Acronym).
		Int("set_number", setNumber).
		Msg("status added")

	return dto.NewStatusResponse(status), nil
}

func (s *statusService) Hide(ctx context.Context, actor Actor, id uint) (dto.StatusResponse, error) {
	if !actor.CanManageAttendance {
		return dto.StatusResponse{}, ErrPermissionDenied
	}

	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StatusResponse{}, ErrStatusNotFound
		}
		return dto.StatusResponse{}, err
	}

	status.Visible = false
	if err := s.statuses.Update(ctx, &status); err != nil {
		return dto.StatusResponse{}, err
	}

	s.logger.Info().Uint("status_id", id).Msg("status hidden")

	return dto.NewStatusResponse(status), nil
}

// Delete soft-deletes a status, and only when no ledger or audit row
// references it. Referenced statuses can merely be hidden.
func (s *statusService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.CanManageAttendance {
		return ErrPermissionDenied
	}

	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStatusNotFound
		}
		return err
	}

	referenced, err := s.ledger.StatusReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return ErrStatusInUse
	}

	status.Deleted = true
	status.Visible = false
	if err := s.statuses.Update(ctx, &status); err != nil {
		return err
	}

	s.logger.Info().Uint("status_id", id).Msg("status deleted")
	return nil
}

// CloneAsNewSet copies the current set under a bumped set number. Old sets
// stay untouched so historical ledger rows keep resolving.
func (s *statusService) CloneAsNewSet(ctx context.Context, actor Actor, activityID uint) ([]dto.StatusResponse, error) {
	if !actor.CanManageAttendance {
		return nil, ErrPermissionDenied
	}

	current, err := s.statuses.MaxSetNumber(ctx, activityID)
	if err != nil {
		return nil, err
	}

	source, err := s.statuses.ListSet(ctx, activityID, current)
	if err != nil {
		return nil, err
	}

	next := current + 1
	clones := make([]models.Status, 0, len(source))
	for _, status := range source {
		if status.Deleted {
			continue
		}
		clones = append(clones, models.Status{
			CourseActivityID: activityID,
			SetNumber:        next,
			Acronym:          status.Acronym,
			Description:      status.Description,
			Points:           status.Points,
			SelfCheckin:      status.SelfCheckin,
			Visible:          status.Visible,
		})
	}

	if err := s.statuses.CreateBatch(ctx, clones); err != nil {
		return nil, err
	}

	s.logger.Info().Uint("activity_id", activityID).Int("set_number", next).Msg("status set cloned")

	return dto.NewStatusResponseSlice(clones), nil
}

// SeedDefaults installs the stock status set on a fresh activity: self
// check-in presence, teacher-marked presence, late, and absent.
func (s *statusService) SeedDefaults(ctx context.Context, actor Actor, activityID uint) ([]dto.StatusResponse, error) {
	if !actor.CanManageAttendance {
		return nil, ErrPermissionDenied
	}

	existing, err := s.statuses.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrStatusSetNotEmpty
	}

	defaults := []models.Status{
		{CourseActivityID: activityID, SetNumber: 0, Acronym: "P", Description: "Present (self check-in)", Points: 2, SelfCheckin: true, Visible: true},
		{CourseActivityID: activityID, SetNumber: 0, Acronym: "M", Description: "Present (marked by staff)", Points: 2, Visible: true},
		{CourseActivityID: activityID, SetNumber: 0, Acronym: "L", Description: "Late", Points: 1, Visible: true},
		{CourseActivityID: activityID, SetNumber: 0, Acronym: "A", Description: "Absent", Points: 0, Visible: true},
	}

	if err := s.statuses.CreateBatch(ctx, defaults); err != nil {
		return nil, err
	}

	s.logger.Info().Uint("activity_id", activityID).Msg("default status set seeded")

	return dto.NewStatusResponseSlice(defaults), nil
}

func (s *statusService) List(ctx context.Context, activityID uint, setNumber *int) ([]dto.StatusResponse, error) {
	if setNumber != nil {
		statuses, err := s.statuses.ListSet(ctx, activityID, *setNumber)
		if err != nil {
			return nil, err
		}
		return dto.NewStatusResponseSlice(statuses), nil
	}

	statuses, err := s.statuses.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	return dto.NewStatusResponseSlice(statuses), nil
}

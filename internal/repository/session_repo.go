package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// SessionFilter describes pagination & listing options for sessions.
type SessionFilter struct {
	IncludeHidden bool
	Sort          string
	Page          int
	PageSize      int
}

// SessionRepository defines persistence operations for attendance sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uint) (models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id uint) error
	ListByActivity(ctx context.Context, activityID uint, filter SessionFilter) ([]models.Session, int64, error)
	StampCheckinWindow(ctx context.Context, sessionID uint, prior *time.Time, opensAt time.Time, durationSeconds int) error
	StampTaken(ctx context.Context, sessionID uint, takenAt time.Time, takenBy uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates a GORM-backed session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint) (models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.Session{}, err
	}

	return session, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepository) ListByActivity(ctx context.Context, activityID uint, filter SessionFilter) ([]models.Session, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Session{}).Where("course_activity_id = ?", activityID)

	if !filter.IncludeHidden {
		query = query.Where("hidden = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeSessionSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var sessions []models.Session
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// StampCheckinWindow writes the checkin window columns with a compare-and-swap
// on the previous opensAt value, so concurrent opens on the same session lose.
func (r *sessionRepository) StampCheckinWindow(ctx context.Context, sessionID uint, prior *time.Time, opensAt time.Time, durationSeconds int) error {
	query := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID)
	if prior == nil {
		query = query.Where("checkin_opens_at IS NULL")
	} else {
		query = query.Where("checkin_opens_at = ?", *prior)
	}

	result := query.Updates(map[string]interface{}{
		"checkin_opens_at": opensAt,
		"checkin_duration": durationSeconds,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *sessionRepository) StampTaken(ctx context.Context, sessionID uint, takenAt time.Time, takenBy uint) error {
	return r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"last_taken_at": takenAt, "last_taken_by": takenBy}).Error
}

func normalizeSessionSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "start_time", "start_time:asc", "start_time.asc":
		return "start_time ASC"
	case "-start_time", "start_time:desc", "start_time.desc":
		return "start_time DESC"
	case "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	default:
		return "start_time ASC"
	}
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// FeedbackFilter describes listing options for dispute entries.
type FeedbackFilter struct {
	SessionID uint
	UserID    uint
	// ResolvedOnly limits the listing to resolved entries; used for the
	// student-facing view, which must not see open disputes.
	ResolvedOnly bool
	Page         int
	PageSize     int
}

// FeedbackRepository defines persistence operations for dispute entries.
type FeedbackRepository interface {
	Create(ctx context.Context, entry *models.FeedbackEntry) error
	GetByID(ctx context.Context, id uint) (models.FeedbackEntry, error)
	Update(ctx context.Context, entry *models.FeedbackEntry) error
	List(ctx context.Context, filter FeedbackFilter) ([]models.FeedbackEntry, int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository instantiates a GORM-backed feedback repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, entry *models.FeedbackEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uint) (models.FeedbackEntry, error) {
	var entry models.FeedbackEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.FeedbackEntry{}, err
	}

	return entry, nil
}

func (r *feedbackRepository) Update(ctx context.Context, entry *models.FeedbackEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]models.FeedbackEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FeedbackEntry{})

	if filter.SessionID != 0 {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ResolvedOnly {
		query = query.Where("resolved_status_id IS NOT NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC, id DESC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var entries []models.FeedbackEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

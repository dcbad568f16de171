package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// StatusRepository defines persistence operations for attendance statuses.
type StatusRepository interface {
	Create(ctx context.Context, status *models.Status) error
	CreateBatch(ctx context.Context, statuses []models.Status) error
	GetByID(ctx context.Context, id uint) (models.Status, error)
	Update(ctx context.Context, status *models.Status) error
	ListByActivity(ctx context.Context, activityID uint) ([]models.Status, error)
	ListSet(ctx context.Context, activityID uint, setNumber int) ([]models.Status, error)
	MaxSetNumber(ctx context.Context, activityID uint) (int, error)
}

type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository instantiates a GORM-backed status repository.
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) Create(ctx context.Context, status *models.Status) error {
	return r.db.WithContext(ctx).Create(status).Error
}

func (r *statusRepository) CreateBatch(ctx context.Context, statuses []models.Status) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&statuses).Error
}

func (r *statusRepository) GetByID(ctx context.Context, id uint) (models.Status, error) {
	var status models.Status
	if err := r.db.WithContext(ctx).First(&status, id).Error; err != nil {
		return models.Status{}, err
	}

	return status, nil
}

func (r *statusRepository) Update(ctx context.Context, status *models.Status) error {
	return r.db.WithContext(ctx).Save(status).Error
}

func (r *statusRepository) ListByActivity(ctx context.Context, activityID uint) ([]models.Status, error) {
	var statuses []models.Status
	err := r.db.WithContext(ctx).
		Where("course_activity_id = ?", activityID).
		Order("set_number ASC, id ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *statusRepository) ListSet(ctx context.Context, activityID uint, setNumber int) ([]models.Status, error) {
	var statuses []models.Status
	err := r.db.WithContext(ctx).
		Where("course_activity_id = ? AND set_number = ?", activityID, setNumber).
		Order("id ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *statusRepository) MaxSetNumber(ctx context.Context, activityID uint) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.Status{}).
		Where("course_activity_id = ?", activityID).
		Select("MAX(set_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

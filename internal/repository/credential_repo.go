package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// CredentialRepository defines persistence operations for checkin credentials
// and the captured image triples of verification attempts.
type CredentialRepository interface {
	// Issue creates the credential inside a transaction that first re-checks
	// that no live credential exists for the pair, keeping "at most one
	// outstanding attempt" true under concurrent issuance.
	Issue(ctx context.Context, credential *models.CheckinCredential) error
	GetByToken(ctx context.Context, token string) (models.CheckinCredential, error)
	LiveForPair(ctx context.Context, sessionID, userID uint, reference time.Time) (models.CheckinCredential, error)
	Update(ctx context.Context, credential *models.CheckinCredential) error
	SaveImages(ctx context.Context, images *models.CheckinImage) error
	ImagesForPair(ctx context.Context, sessionID, userID uint) ([]models.CheckinImage, error)
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository instantiates a GORM-backed credential repository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Issue(ctx context.Context, credential *models.CheckinCredential) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.CheckinCredential{}).
			Where("session_id = ? AND user_id = ? AND consumed = ? AND expires_at > ?",
				credential.SessionID, credential.UserID, false, credential.IssuedAt).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrVersionConflict
		}

		return tx.Create(credential).Error
	})
}

func (r *credentialRepository) GetByToken(ctx context.Context, token string) (models.CheckinCredential, error) {
	var credential models.CheckinCredential
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&credential).Error
	if err != nil {
		return models.CheckinCredential{}, err
	}

	return credential, nil
}

func (r *credentialRepository) LiveForPair(ctx context.Context, sessionID, userID uint, reference time.Time) (models.CheckinCredential, error) {
	var credential models.CheckinCredential
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ? AND consumed = ? AND expires_at > ?",
			sessionID, userID, false, reference).
		First(&credential).Error
	if err != nil {
		return models.CheckinCredential{}, err
	}

	return credential, nil
}

func (r *credentialRepository) Update(ctx context.Context, credential *models.CheckinCredential) error {
	return r.db.WithContext(ctx).Save(credential).Error
}

func (r *credentialRepository) SaveImages(ctx context.Context, images *models.CheckinImage) error {
	return r.db.WithContext(ctx).Create(images).Error
}

func (r *credentialRepository) ImagesForPair(ctx context.Context, sessionID, userID uint) ([]models.CheckinImage, error) {
	var images []models.CheckinImage
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("taken_at ASC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}

	return images, nil
}

package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// ErrVersionConflict indicates an optimistic-lock collision: the row changed
// between read and write, or a concurrent insert won the unique constraint.
var ErrVersionConflict = errors.New("row version conflict")

// ActionLogFilter describes pagination & search options for the audit trail.
type ActionLogFilter struct {
	SessionID uint
	UserID    uint
	Search    string
	Page      int
	PageSize  int
}

// LedgerRepository defines persistence operations for attendance records and
// their append-only audit trail.
type LedgerRepository interface {
	GetEntry(ctx context.Context, sessionID, userID uint) (models.LedgerEntry, error)
	// ApplyStatus upserts the ledger entry and appends the action-log row in a
	// single transaction. New entries insert against the (session, user) unique
	// constraint; existing entries update under a compare-and-swap on Version.
	// Either collision surfaces as ErrVersionConflict.
	ApplyStatus(ctx context.Context, entry *models.LedgerEntry, log *models.ActionLog) error
	EntriesForSession(ctx context.Context, sessionID uint) ([]models.LedgerEntry, error)
	EntriesForUser(ctx context.Context, activityID, userID uint) ([]models.LedgerEntry, error)
	SessionHasEntries(ctx context.Context, sessionID uint) (bool, error)
	StatusReferenced(ctx context.Context, statusID uint) (bool, error)
	Logs(ctx context.Context, activityID uint, filter ActionLogFilter) ([]models.ActionLog, int64, error)
	LogsForPair(ctx context.Context, sessionID, userID uint) ([]models.ActionLog, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository instantiates a GORM-backed ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetEntry(ctx context.Context, sessionID, userID uint) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&entry).Error
	if err != nil {
		return models.LedgerEntry{}, err
	}

	return entry, nil
}

func (r *ledgerRepository) ApplyStatus(ctx context.Context, entry *models.LedgerEntry, log *models.ActionLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.ID == 0 {
			entry.Version = 1
			if err := tx.Create(entry).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrVersionConflict
				}
				return err
			}
		} else {
			expected := entry.Version
			entry.Version = expected + 1
			result := tx.Model(&models.LedgerEntry{}).
				Where("id = ? AND version = ?", entry.ID, expected).
				Updates(map[string]interface{}{
					"status_id":          entry.StatusID,
					"recorded_at":        entry.RecordedAt,
					"recorded_by":        entry.RecordedBy,
					"remarks":            entry.Remarks,
					"via_online_checkin": entry.ViaOnlineCheckin,
					"checkin_at":         entry.CheckinAt,
					"checkout_at":        entry.CheckoutAt,
					"version":            entry.Version,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrVersionConflict
			}
		}

		return tx.Create(log).Error
	})
}

func (r *ledgerRepository) EntriesForSession(ctx context.Context, sessionID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("user_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *ledgerRepository) EntriesForUser(ctx context.Context, activityID, userID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.id = ledger_entries.session_id").
		Where("sessions.course_activity_id = ? AND ledger_entries.user_id = ?", activityID, userID).
		Order("ledger_entries.session_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *ledgerRepository) SessionHasEntries(ctx context.Context, sessionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *ledgerRepository) StatusReferenced(ctx context.Context, statusID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("status_id = ?", statusID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Model(&models.ActionLog{}).
		Where("new_status_id = ? OR old_status_id = ?", statusID, statusID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *ledgerRepository) Logs(ctx context.Context, activityID uint, filter ActionLogFilter) ([]models.ActionLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActionLog{}).
		Joins("JOIN sessions ON sessions.id = action_logs.session_id").
		Where("sessions.course_activity_id = ?", activityID)

	if filter.SessionID != 0 {
		query = query.Where("action_logs.session_id = ?", filter.SessionID)
	}
	if filter.UserID != 0 {
		query = query.Where("action_logs.user_id = ?", filter.UserID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(action_logs.description) LIKE ?", pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("action_logs.taken_at DESC, action_logs.id DESC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var logs []models.ActionLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *ledgerRepository) LogsForPair(ctx context.Context, sessionID, userID uint) ([]models.ActionLog, error) {
	var logs []models.ActionLog
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("taken_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return logs, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique") || strings.Contains(message, "duplicate")
}

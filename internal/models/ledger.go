package models

import "time"

// LedgerEntry is the single live attendance record for a (session, user) pair.
// Updates overwrite in place under an optimistic version; every overwrite is
// mirrored into an ActionLog row.
type LedgerEntry struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	SessionID        uint       `gorm:"not null;uniqueIndex:idx_ledger_session_user" json:"session_id"`
	UserID           uint       `gorm:"not null;uniqueIndex:idx_ledger_session_user" json:"user_id"`
	StatusID         uint       `gorm:"not null" json:"status_id"`
	RecordedAt       time.Time  `gorm:"not null" json:"recorded_at"`
	RecordedBy       uint       `gorm:"not null" json:"recorded_by"`
	Remarks          string     `gorm:"type:text" json:"remarks"`
	ViaOnlineCheckin bool       `gorm:"not null;default:false" json:"via_online_checkin"`
	CheckinAt        *time.Time `json:"checkin_at"`
	CheckoutAt       *time.Time `json:"checkout_at"`
	Version          int        `gorm:"not null;default:1" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ActionLog is the append-only audit trail of attendance status changes.
type ActionLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"index;not null" json:"session_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ActorID     uint      `gorm:"not null" json:"actor_id"`
	OldStatusID *uint     `json:"old_status_id"`
	NewStatusID uint      `gorm:"not null" json:"new_status_id"`
	TakenAt     time.Time `gorm:"not null" json:"taken_at"`
	Description string    `gorm:"type:text" json:"description"`
}

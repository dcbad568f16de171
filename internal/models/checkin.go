package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheckinCredential is a single-use token gating one face-verification attempt
// inside a session's online checkin window.
type CheckinCredential struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	SessionID  uint              `gorm:"not null;index:idx_credential_pair" json:"session_id"`
	UserID     uint              `gorm:"not null;index:idx_credential_pair" json:"user_id"`
	Token      string            `gorm:"size:64;uniqueIndex;not null" json:"token"`
	IssuedAt   time.Time         `gorm:"not null" json:"issued_at"`
	ExpiresAt  time.Time         `gorm:"not null" json:"expires_at"`
	Consumed   bool              `gorm:"not null;default:false" json:"consumed"`
	ConsumedAt *time.Time        `json:"consumed_at"`
	Accepted   bool              `gorm:"not null;default:false" json:"accepted"`
	Result     datatypes.JSONMap `gorm:"type:json" json:"result"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Live reports whether the credential can still be spent at the reference
// instant. Expiry is computed, never swept.
func (c CheckinCredential) Live(reference time.Time) bool {
	return !c.Consumed && reference.Before(c.ExpiresAt)
}

// Expired reports whether the credential's validity window has elapsed.
func (c CheckinCredential) Expired(reference time.Time) bool {
	return !reference.Before(c.ExpiresAt)
}

// CheckinImage stores the captured face-image triple of one verification
// attempt, kept for staff review alongside feedback on the recorded status.
type CheckinImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"index;not null" json:"session_id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	ImageFront string    `gorm:"type:text" json:"image_front"`
	ImageLeft  string    `gorm:"type:text" json:"image_left"`
	ImageRight string    `gorm:"type:text" json:"image_right"`
	TakenAt    time.Time `gorm:"not null" json:"taken_at"`
	Accepted   bool      `gorm:"not null;default:false" json:"accepted"`
}

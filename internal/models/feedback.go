package models

import "time"

// FeedbackEntry is a student-raised dispute over a recorded attendance status.
// Resolution happens through a ledger mutation that also stamps the entry.
type FeedbackEntry struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	SessionID        uint       `gorm:"index;not null" json:"session_id"`
	UserID           uint       `gorm:"index;not null" json:"user_id"`
	RaisedBy         uint       `gorm:"not null" json:"raised_by"`
	Description      string     `gorm:"type:text;not null" json:"description"`
	Image            string     `gorm:"type:text" json:"image"`
	ResolvedStatusID *uint      `json:"resolved_status_id"`
	ResolvedBy       *uint      `json:"resolved_by"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Resolved reports whether staff has closed out the dispute.
func (f FeedbackEntry) Resolved() bool {
	return f.ResolvedStatusID != nil
}

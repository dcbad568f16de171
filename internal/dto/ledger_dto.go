package dto

import (
	"time"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// SetStatusRequest assigns one status to one user for a session.
type SetStatusRequest struct {
	StatusID uint   `json:"status_id" validate:"required"`
	Remarks  string `json:"remarks"`
}

// TakeEntry is one row of a bulk take form.
type TakeEntry struct {
	UserID   uint   `json:"user_id" validate:"required"`
	StatusID uint   `json:"status_id" validate:"required"`
	Remarks  string `json:"remarks"`
}

// TakeRequest applies statuses for many users of a session at once.
type TakeRequest struct {
	Entries []TakeEntry `json:"entries" validate:"required,min=1,dive"`
}

// LedgerEntryResponse is the serialized attendance record.
type LedgerEntryResponse struct {
	ID               uint       `json:"id"`
	SessionID        uint       `json:"session_id"`
	UserID           uint       `json:"user_id"`
	StatusID         uint       `json:"status_id"`
	RecordedAt       time.Time  `json:"recorded_at"`
	RecordedBy       uint       `json:"recorded_by"`
	Remarks          string     `json:"remarks"`
	ViaOnlineCheckin bool       `json:"via_online_checkin"`
	CheckinAt        *time.Time `json:"checkin_at"`
	CheckoutAt       *time.Time `json:"checkout_at"`
}

// NewLedgerEntryResponse converts a ledger entry model into a DTO.
func NewLedgerEntryResponse(model models.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:               model.ID,
		SessionID:        model.SessionID,
		UserID:           model.UserID,
		StatusID:         model.StatusID,
		RecordedAt:       model.RecordedAt,
		RecordedBy:       model.RecordedBy,
		Remarks:          model.Remarks,
		ViaOnlineCheckin: model.ViaOnlineCheckin,
		CheckinAt:        model.CheckinAt,
		CheckoutAt:       model.CheckoutAt,
	}
}

// NewLedgerEntryResponseSlice converts ledger entry models into DTOs.
func NewLedgerEntryResponseSlice(entries []models.LedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewLedgerEntryResponse(entry))
	}

	return responses
}

// ActionLogResponse is one row of the append-only audit trail.
type ActionLogResponse struct {
	ID          uint      `json:"id"`
	SessionID   uint      `json:"session_id"`
	UserID      uint      `json:"user_id"`
	ActorID     uint      `json:"actor_id"`
	OldStatusID *uint     `json:"old_status_id"`
	NewStatusID uint      `json:"new_status_id"`
	TakenAt     time.Time `json:"taken_at"`
	Description string    `json:"description"`
}

// NewActionLogResponse converts an action log model into a DTO.
func NewActionLogResponse(model models.ActionLog) ActionLogResponse {
	return ActionLogResponse{
		ID:          model.ID,
		SessionID:   model.SessionID,
		UserID:      model.UserID,
		ActorID:     model.ActorID,
		OldStatusID: model.OldStatusID,
		NewStatusID: model.NewStatusID,
		TakenAt:     model.TakenAt,
		Description: model.Description,
	}
}

// NewActionLogResponseSlice converts action log models into DTOs.
func NewActionLogResponseSlice(logs []models.ActionLog) []ActionLogResponse {
	responses := make([]ActionLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, NewActionLogResponse(log))
	}

	return responses
}

package dto

import (
	"time"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// FeedbackCreateRequest raises a dispute over a recorded status.
type FeedbackCreateRequest struct {
	SessionID   uint   `json:"session_id" validate:"required"`
	UserID      uint   `json:"user_id"`
	Description string `json:"description" validate:"required,min=3"`
	Image       string `json:"image"`
}

// FeedbackResolveRequest closes a dispute by assigning a new status.
type FeedbackResolveRequest struct {
	StatusID uint `json:"status_id" validate:"required"`
}

// FeedbackResponse is the serialized dispute entry.
type FeedbackResponse struct {
	ID               uint       `json:"id"`
	SessionID        uint       `json:"session_id"`
	UserID           uint       `json:"user_id"`
	RaisedBy         uint       `json:"raised_by"`
	Description      string     `json:"description"`
	Image            string     `json:"image,omitempty"`
	Resolved         bool       `json:"resolved"`
	ResolvedStatusID *uint      `json:"resolved_status_id"`
	ResolvedBy       *uint      `json:"resolved_by"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewFeedbackResponse converts a feedback model into a DTO.
func NewFeedbackResponse(model models.FeedbackEntry) FeedbackResponse {
	return FeedbackResponse{
		ID:               model.ID,
		SessionID:        model.SessionID,
		UserID:           model.UserID,
		RaisedBy:         model.RaisedBy,
		Description:      model.Description,
		Image:            model.Image,
		Resolved:         model.Resolved(),
		ResolvedStatusID: model.ResolvedStatusID,
		ResolvedBy:       model.ResolvedBy,
		ResolvedAt:       model.ResolvedAt,
		CreatedAt:        model.CreatedAt,
	}
}

// NewFeedbackResponseSlice converts feedback models into DTOs.
func NewFeedbackResponseSlice(entries []models.FeedbackEntry) []FeedbackResponse {
	responses := make([]FeedbackResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewFeedbackResponse(entry))
	}

	return responses
}

package dto

import (
	"time"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// SessionCreateRequest describes the payload for scheduling a new session.
type SessionCreateRequest struct {
	StartTime       string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationSeconds int    `json:"duration_seconds" validate:"required,min=60"`
	GroupID         uint   `json:"group_id"`
	Description     string `json:"description"`
	StatusSetNumber *int   `json:"status_set_number" validate:"omitempty,min=0"`
}

// SessionUpdateRequest describes the payload for editing a session.
type SessionUpdateRequest struct {
	Description     *string `json:"description"`
	DurationSeconds *int    `json:"duration_seconds" validate:"omitempty,min=60"`
	Hidden          *bool   `json:"hidden"`
}

// OpenCheckinWindowRequest opens a time-boxed online checkin window.
type OpenCheckinWindowRequest struct {
	DurationSeconds int `json:"duration_seconds" validate:"required,min=30,max=3600"`
}

// SessionResponse is the serialized session representation.
type SessionResponse struct {
	ID                uint       `json:"id"`
	CourseActivityID  uint       `json:"course_activity_id"`
	StartTime         time.Time  `json:"start_time"`
	DurationSeconds   int        `json:"duration_seconds"`
	EndTime           time.Time  `json:"end_time"`
	GroupID           uint       `json:"group_id"`
	Description       string     `json:"description"`
	StatusSetNumber   int        `json:"status_set_number"`
	LastTakenAt       *time.Time `json:"last_taken_at"`
	CheckinOpensAt    *time.Time `json:"checkin_opens_at"`
	CheckinDuration   int        `json:"checkin_duration_seconds"`
	CheckinWindowOpen bool       `json:"checkin_window_open"`
	Hidden            bool       `json:"hidden"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewSessionResponse converts a session model into a DTO. The checkin window
// flag is computed against the supplied reference instant.
func NewSessionResponse(model models.Session, reference time.Time) SessionResponse {
	return SessionResponse{
		ID:                model.ID,
		CourseActivityID:  model.CourseActivityID,
		StartTime:         model.StartTime,
		DurationSeconds:   model.DurationSeconds,
		EndTime:           model.EndTime(),
		GroupID:           model.GroupID,
		Description:       model.Description,
		StatusSetNumber:   model.StatusSetNumber,
		LastTakenAt:       model.LastTakenAt,
		CheckinOpensAt:    model.CheckinOpensAt,
		CheckinDuration:   model.CheckinDuration,
		CheckinWindowOpen: model.CheckinWindowOpen(reference),
		Hidden:            model.Hidden,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

// NewSessionResponseSlice converts a slice of session models into DTOs.
func NewSessionResponseSlice(sessions []models.Session, reference time.Time) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, NewSessionResponse(session, reference))
	}

	return responses
}

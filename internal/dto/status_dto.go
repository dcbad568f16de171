package dto

import (
	"time"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// StatusCreateRequest describes the payload for adding a status to a set.
// Acronym length is enforced by the service so the caller gets the specific
// too-long error rather than a generic validation failure.
type StatusCreateRequest struct {
	SetNumber   *int    `json:"set_number" validate:"omitempty,min=0"`
	Acronym     string  `json:"acronym" validate:"required"`
	Description string  `json:"description" validate:"required,min=2"`
	Points      float64 `json:"points" validate:"min=0"`
	SelfCheckin bool    `json:"self_checkin"`
}

// StatusResponse is the serialized status representation.
type StatusResponse struct {
	ID               uint      `json:"id"`
	CourseActivityID uint      `json:"course_activity_id"`
	SetNumber        int       `json:"set_number"`
	Acronym          string    `json:"acronym"`
	Description      string    `json:"description"`
	Points           float64   `json:"points"`
	SelfCheckin      bool      `json:"self_checkin"`
	Visible          bool      `json:"visible"`
	Deleted          bool      `json:"deleted"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewStatusResponse converts a status model into a DTO.
func NewStatusResponse(model models.Status) StatusResponse {
	return StatusResponse{
		ID:               model.ID,
		CourseActivityID: model.CourseActivityID,
		SetNumber:        model.SetNumber,
		Acronym:          model.Acronym,
		Description:      model.Description,
		Points:           model.Points,
		SelfCheckin:      model.SelfCheckin,
		Visible:          model.Visible,
		Deleted:          model.Deleted,
		CreatedAt:        model.CreatedAt,
	}
}

// NewStatusResponseSlice converts a slice of status models into DTOs.
func NewStatusResponseSlice(statuses []models.Status) []StatusResponse {
	responses := make([]StatusResponse, 0, len(statuses))
	for _, status := range statuses {
		responses = append(responses, NewStatusResponse(status))
	}

	return responses
}

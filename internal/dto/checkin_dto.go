package dto

import (
	"time"

	"github.com/rollcall-io/attendance-api/internal/models"
)

// CredentialResponse is returned when a checkin credential is issued. The
// countdown mirrors the capture UI timer that redirects once time elapses.
type CredentialResponse struct {
	Token            string    `json:"token"`
	SessionID        uint      `json:"session_id"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	SecondsRemaining int       `json:"seconds_remaining"`
}

// NewCredentialResponse converts a credential model into a DTO.
func NewCredentialResponse(model models.CheckinCredential, reference time.Time) CredentialResponse {
	remaining := int(model.ExpiresAt.Sub(reference).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	return CredentialResponse{
		Token:            model.Token,
		SessionID:        model.SessionID,
		IssuedAt:         model.IssuedAt,
		ExpiresAt:        model.ExpiresAt,
		SecondsRemaining: remaining,
	}
}

// SubmitCheckinRequest carries the single-use token and the captured
// front/left/right face images as data URIs.
type SubmitCheckinRequest struct {
	Token      string `json:"token" validate:"required"`
	ImageFront string `json:"image_front" validate:"required"`
	ImageLeft  string `json:"image_left" validate:"required"`
	ImageRight string `json:"image_right" validate:"required"`
}

// CheckinResultResponse reports the outcome of a verification attempt.
type CheckinResultResponse struct {
	Accepted bool                 `json:"accepted"`
	Message  string               `json:"message"`
	Entry    *LedgerEntryResponse `json:"entry,omitempty"`
}

// CheckinImageResponse is one stored capture triple for staff review.
type CheckinImageResponse struct {
	ID         uint      `json:"id"`
	SessionID  uint      `json:"session_id"`
	UserID     uint      `json:"user_id"`
	ImageFront string    `json:"image_front"`
	ImageLeft  string    `json:"image_left"`
	ImageRight string    `json:"image_right"`
	TakenAt    time.Time `json:"taken_at"`
	Accepted   bool      `json:"accepted"`
}

// NewCheckinImageResponseSlice converts capture models into DTOs.
func NewCheckinImageResponseSlice(images []models.CheckinImage) []CheckinImageResponse {
	responses := make([]CheckinImageResponse, 0, len(images))
	for _, image := range images {
		responses = append(responses, CheckinImageResponse{
			ID:         image.ID,
			SessionID:  image.SessionID,
			UserID:     image.UserID,
			ImageFront: image.ImageFront,
			ImageLeft:  image.ImageLeft,
			ImageRight: image.ImageRight,
			TakenAt:    image.TakenAt,
			Accepted:   image.Accepted,
		})
	}

	return responses
}

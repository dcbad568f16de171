package dto

import "time"

// Attendance event types carried over the broker, NATS, and the live feed.
const (
	EventStatusSet       = "status_set"
	EventCheckinAccepted = "checkin_accepted"
	EventCheckinRejected = "checkin_rejected"
	EventWindowOpened    = "checkin_window_opened"
)

// AttendanceEvent describes one observable change in a session's ledger or
// checkin window, streamed to staff watching the live take page.
type AttendanceEvent struct {
	Type      string    `json:"type"`
	SessionID uint      `json:"session_id"`
	UserID    uint      `json:"user_id,omitempty"`
	StatusID  uint      `json:"status_id,omitempty"`
	ActorID   uint      `json:"actor_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

package dto

import "time"

// StatusCount aggregates, per status, how often a user received it.
type StatusCount struct {
	StatusID    uint    `json:"status_id"`
	Acronym     string  `json:"acronym"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Points      float64 `json:"points"`
}

// UserSummaryResponse aggregates a user's attendance for one activity.
//
// PercentageToDate divides by the maximum points of the sessions actually
// taken for this user; PercentageOverall divides by all scheduled sessions.
// The two denominators are distinct on purpose and must stay that way.
type UserSummaryResponse struct {
	CourseActivityID     uint          `json:"course_activity_id"`
	UserID               uint          `json:"user_id"`
	StatusCounts         []StatusCount `json:"status_counts"`
	Points               float64       `json:"points"`
	MaxPointsToDate      float64       `json:"max_points_to_date"`
	MaxPointsAllSessions float64       `json:"max_points_all_sessions"`
	PercentageToDate     string        `json:"percentage_to_date"`
	PercentageOverall    string        `json:"percentage_overall"`
	SessionsTaken        int           `json:"sessions_taken"`
	SessionsTotal        int           `json:"sessions_total"`
}

// SessionReportRow is one roster line of a session report.
type SessionReportRow struct {
	UserID           uint       `json:"user_id"`
	StatusID         *uint      `json:"status_id"`
	Acronym          string     `json:"acronym"`
	Description      string     `json:"description"`
	Points           *float64   `json:"points"`
	Remarks          string     `json:"remarks"`
	RecordedAt       *time.Time `json:"recorded_at"`
	ViaOnlineCheckin bool       `json:"via_online_checkin"`
}

// SessionReportResponse is the roster-by-status view of one session.
type SessionReportResponse struct {
	Session SessionReportHeader `json:"session"`
	Rows    []SessionReportRow  `json:"rows"`
}

// SessionReportHeader carries the session facts a report consumer needs.
type SessionReportHeader struct {
	SessionID       uint      `json:"session_id"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int       `json:"duration_seconds"`
	Description     string    `json:"description"`
	StatusSetNumber int       `json:"status_set_number"`
}

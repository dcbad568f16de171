package models

import "time"

// Session represents one scheduled attendance-taking instance for a course activity.
type Session struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	CourseActivityID uint       `gorm:"index;not null" json:"course_activity_id"`
	StartTime        time.Time  `gorm:"not null" json:"start_time"`
	DurationSeconds  int        `gorm:"not null" json:"duration_seconds"`
	GroupID          uint       `json:"group_id"`
	Description      string     `gorm:"type:text" json:"description"`
	StatusSetNumber  int        `gorm:"not null" json:"status_set_number"`
	LastTakenAt      *time.Time `json:"last_taken_at"`
	LastTakenBy      uint       `json:"last_taken_by"`
	CheckinOpensAt   *time.Time `json:"checkin_opens_at"`
	CheckinDuration  int        `json:"checkin_duration_seconds"`
	Hidden           bool       `gorm:"not null;default:false" json:"hidden"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EndTime returns the instant the session's own time window closes.
func (s Session) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationSeconds) * time.Second)
}

// InProgress reports whether the reference instant falls inside [start, start+duration).
func (s Session) InProgress(reference time.Time) bool {
	return !reference.Before(s.StartTime) && reference.Before(s.EndTime())
}

// Past reports whether the session window has already elapsed.
func (s Session) Past(reference time.Time) bool {
	return reference.After(s.EndTime())
}

// CheckinWindowEnd returns the close instant of the online checkin window,
// or false when no window was ever opened.
func (s Session) CheckinWindowEnd() (time.Time, bool) {
	if s.CheckinOpensAt == nil {
		return time.Time{}, false
	}
	return s.CheckinOpensAt.Add(time.Duration(s.CheckinDuration) * time.Second), true
}

// CheckinWindowOpen reports whether the online checkin window is open at the
// reference instant. The close boundary itself counts as closed.
func (s Session) CheckinWindowOpen(reference time.Time) bool {
	end, ok := s.CheckinWindowEnd()
	if !ok {
		return false
	}
	return !reference.Before(*s.CheckinOpensAt) && reference.Before(end)
}

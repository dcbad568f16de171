package models

import "time"

// MaxAcronymLength is the hard limit on status acronyms.
const MaxAcronymLength = 2

// Status is one graded attendance outcome within a versioned status set.
type Status struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CourseActivityID uint      `gorm:"index;not null" json:"course_activity_id"`
	SetNumber        int       `gorm:"not null" json:"set_number"`
	Acronym          string    `gorm:"size:2;not null" json:"acronym"`
	Description      string    `gorm:"size:255;not null" json:"description"`
	Points           float64   `gorm:"not null" json:"points"`
	SelfCheckin      bool      `gorm:"not null;default:false" json:"self_checkin"`
	Visible          bool      `gorm:"not null;default:true" json:"visible"`
	Deleted          bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Active reports whether the status may still be assigned.
func (s Status) Active() bool {
	return s.Visible && !s.Deleted
}

// StatusSetMaxPoints returns, per set number, the highest point value among the
// given statuses. Deleted statuses still count: historical ledger rows may
// reference them.
func StatusSetMaxPoints(statuses []Status) map[int]float64 {
	max := make(map[int]float64)
	for _, status := range statuses {
		if current, ok := max[status.SetNumber]; !ok || status.Points > current {
			max[status.SetNumber] = status.Points
		}
	}
	return max
}

package models

import "time"

// ExamSession is a capacity-limited exam slot. Capacity 0 means unlimited.
type ExamSession struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Date      time.Time `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Location  string    `db:"location" json:"location"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Unlimited reports whether the session has no capacity limit.
func (s *ExamSession) Unlimited() bool {
	return s.Capacity <= 0
}

// HasRoom reports whether another applicant fits given the current occupancy.
func (s *ExamSession) HasRoom(occupied int) bool {
	return s.Unlimited() || occupied < s.Capacity
}

// ExamSessionWithOccupancy adds the current assignment count to a session.
type ExamSessionWithOccupancy struct {
	ExamSession
	Assigned int `db:"assigned" json:"assigned"`
}

// SessionOccupancy summarises how full a session is.
type SessionOccupancy struct {
	SessionID string `json:"session_id"`
	Assigned  int    `json:"assigned"`
	Capacity  int    `json:"capacity"`
	Remaining *int   `json:"remaining,omitempty"`
}

// CapacityWarning is the advisory returned when an assignment would exceed capacity.
type CapacityWarning struct {
	Assigned    int    `json:"assigned"`
	Capacity    int    `json:"capacity"`
	SessionName string `json:"session_name"`
}

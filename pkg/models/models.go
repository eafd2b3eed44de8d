// Package models defines the domain models for the production timeline service
package models

import (
	"time"
)

// Phase groups rooms of the facility (e.g. "Phase 1").
type Phase struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Status    bool      `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Room is a physical growing room belonging to a phase.
type Room struct {
	ID         string    `json:"id" db:"id"`
	RoomNumber string    `json:"room_number" db:"room_number"`
	PhaseID    string    `json:"phase_id" db:"phase_id"`
	Status     bool      `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Stage is one step of the cultivation cycle. Position strictly orders the
// stages; every stage lasts at least MinDays and may be held open up to
// MaxDays.
type Stage struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code,omitempty" db:"code"`
	MinDays   int       `json:"min_days" db:"min_days"`
	MaxDays   int       `json:"max_days" db:"max_days"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductionRequest is an operator's request to run one cultivation cycle in
// a room. It is immutable once created.
type ProductionRequest struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	PhaseID     string    `json:"phase_id" db:"phase_id"`
	RoomID      string    `json:"room_id" db:"room_id"`
	StageID     string    `json:"stage_id" db:"stage_id"`
	Flow        string    `json:"flow" db:"flow"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	SpecialCase bool      `json:"special_case" db:"special_case"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TimelineEntry is a single calendar day of a request's schedule, tagged
// with the flow code active on that day.
type TimelineEntry struct {
	ID          string    `json:"id" db:"id"`
	RequestID   string    `json:"request_id" db:"request_id"`
	Name        string    `json:"name" db:"name"`
	PhaseID     string    `json:"phase_id" db:"phase_id"`
	RoomID      string    `json:"room_id" db:"room_id"`
	StageID     string    `json:"stage_id" db:"stage_id"`
	Flow        string    `json:"flow" db:"flow"`
	CurrentFlow string    `json:"current_flow" db:"current_flow"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	Date        time.Time `json:"date" db:"date"`
	SpecialCase bool      `json:"special_case" db:"special_case"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// MoveKind classifies a flow transition.
type MoveKind string

const (
	MoveForward          MoveKind = "forward"
	MoveForwardBoundary  MoveKind = "forward_boundary"
	MoveBackward         MoveKind = "backward"
	MoveBackwardBoundary MoveKind = "backward_boundary"
	MoveBlocked          MoveKind = "blocked"
)

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

package entities

import (
	"time"

	"github.com/google/uuid"
)

// RosterEventType represents the kind of change made to the doctor roster
type RosterEventType string

const (
	RosterEventDoctorAdded         RosterEventType = "doctor_added"
	RosterEventDoctorUpdated       RosterEventType = "doctor_updated"
	RosterEventDoctorRemoved       RosterEventType = "doctor_removed"
	RosterEventAvailabilityChanged RosterEventType = "availability_changed"
	RosterEventReindex             RosterEventType = "reindex"
)

// RosterEvent announces that the doctor directory changed and derived
// search state is stale
type RosterEvent struct {
	ID        string          `json:"id"`
	DoctorID  string          `json:"doctor_id,omitempty"`
	EventType RosterEventType `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRosterEvent creates a new roster event
func NewRosterEvent(doctorID string, eventType RosterEventType) *RosterEvent {
	return &RosterEvent{
		ID:        uuid.New().String(),
		DoctorID:  doctorID,
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

package models

import "time"

const (
	SlotEventBooked   = "slot.booked"
	SlotEventReleased = "slot.released"
)

// SlotEvent is broadcast whenever a doctor's slot map changes.
type SlotEvent struct {
	Type      string    `json:"type"`
	DoctorID  string    `json:"doctor_id"`
	SlotDate  string    `json:"slot_date"`
	SlotTime  string    `json:"slot_time"`
	Timestamp time.Time `json:"timestamp"`
}

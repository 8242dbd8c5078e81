package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus is the lifecycle state derived from the three flags.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusPaid      AppointmentStatus = "paid"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is one booking of one slot. It is never deleted; cancellation
// only sets the Cancelled flag.
type Appointment struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	UserID   string         `bson:"userId" json:"userId"`
	DocID    string         `bson:"docId" json:"docId"`
	SlotDate string         `bson:"slotDate" json:"slotDate"`
	SlotTime string         `bson:"slotTime" json:"slotTime"`
	UserData PatientProfile `bson:"userData" json:"userData"`
	DocData  DoctorProfile  `bson:"docData" json:"docData"`

	Amount int64     `bson:"amount" json:"amount"`
	Date   time.Time `bson:"date" json:"date"`

	Cancelled   bool `bson:"cancelled" json:"cancelled"`
	Payment     bool `bson:"payment" json:"payment"`
	IsCompleted bool `bson:"isCompleted" json:"isCompleted"`
}

// Status folds the flags into one state. Cancelled wins over completed,
// completed wins over paid.
func (a *Appointment) Status() AppointmentStatus {
	switch {
	case a.Cancelled:
		return StatusCancelled
	case a.IsCompleted:
		return StatusCompleted
	case a.Payment:
		return StatusPaid
	default:
		return StatusBooked
	}
}

// Billable reports whether the appointment counts towards earnings.
func (a *Appointment) Billable() bool {
	return a.IsCompleted || a.Payment
}

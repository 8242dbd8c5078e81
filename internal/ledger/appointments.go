package ledger

import (
	"context"
	"errors"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// Cancel cancels an appointment on behalf of requester and frees its slot.
// A patient may cancel only their own appointment and a doctor only one
// booked with them. Admins may cancel any appointment.
func (l *Ledger) Cancel(ctx context.Context, appointmentID string, requester Requester) error {
	apt, err := l.cancel(ctx, appointmentID, requester)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	monitoring.ObserveCancellation(string(requester.Role), outcome)
	fields := logrus.Fields{
		"appointment_id": appointmentID,
		"requester_id":   requester.ID,
		"role":           requester.Role,
	}
	if apt != nil {
		fields["doctor_id"] = apt.DocID
		fields["slot_date"] = apt.SlotDate
		fields["slot_time"] = apt.SlotTime
	}
	l.log.Booking(ctx, "cancel", outcome, fields)
	return err
}

func (l *Ledger) cancel(ctx context.Context, appointmentID string, requester Requester) (*models.Appointment, error) {
	if appointmentID == "" || requester.ID == "" {
		return nil, apperr.Validation("Missing details")
	}

	apt, err := l.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch requester.Role {
	case RolePatient:
		if apt.UserID != requester.ID {
			return apt, apperr.NotAuthorized("Unauthorized action")
		}
	case RoleDoctor:
		if apt.DocID != requester.ID {
			return apt, apperr.NotAuthorized("Unauthorized action")
		}
	case RoleAdmin:
	default:
		return apt, apperr.NotAuthorized("Unauthorized action")
	}

	if apt.Cancelled {
		return apt, nil
	}
	if apt.IsCompleted {
		return apt, apperr.New(apperr.KindInvalidState, "Completed appointments cannot be cancelled")
	}

	unlock, err := l.locker.Lock(ctx, slotLockKey(apt.DocID, apt.SlotDate))
	if err != nil {
		return apt, apperr.Wrap(apperr.KindStore, "Slot is busy, please retry", err)
	}
	defer unlock()

	if tx, ok := l.transactor(); ok {
		err = tx.RunInTransaction(ctx, func(ctx context.Context) error {
			return l.cancelAndRelease(ctx, apt)
		})
	} else {
		err = l.cancelAndRelease(ctx, apt)
	}
	if errors.Is(err, errCancelRaced) {
		// Someone else cancelled or completed it between the read and the
		// update. Only a cancelled record counts as success.
		current, err := l.findAppointment(ctx, appointmentID)
		if err != nil {
			return apt, err
		}
		if current.Cancelled {
			return current, nil
		}
		return current, apperr.New(apperr.KindInvalidState, "Completed appointments cannot be cancelled")
	}
	if err != nil {
		return apt, err
	}
	apt.Cancelled = true

	l.publish(ctx, models.SlotEventReleased, apt.DocID, apt.SlotDate, apt.SlotTime)
	return apt, nil
}

var errCancelRaced = errors.New("appointment changed during cancel")

// cancelAndRelease flips the appointment to cancelled and frees its slot.
// Outside a transaction a failed release puts the flag back, so a retry can
// still free the slot.
func (l *Ledger) cancelAndRelease(ctx context.Context, apt *models.Appointment) error {
	id := apt.ID.Hex()
	flipped, err := l.store.SetCancelled(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to cancel appointment", err)
	}
	if !flipped {
		return errCancelRaced
	}

	err = l.store.ReleaseSlot(ctx, apt.DocID, apt.SlotDate, apt.SlotTime)
	if err == nil {
		return nil
	}
	if _, inTx := l.transactor(); !inTx {
		if _, undoErr := l.store.ClearCancelled(ctx, id); undoErr != nil {
			l.log.WithContext(ctx).WithError(undoErr).WithField("appointment_id", id).Error("Failed to restore appointment after slot release error")
		}
	}
	return apperr.Wrap(apperr.KindStore, "Failed to release slot, please retry", err)
}

// MarkCompleted marks the doctor's appointment as completed. The slot stays
// consumed.
func (l *Ledger) MarkCompleted(ctx context.Context, appointmentID, doctorID string) error {
	err := l.markCompleted(ctx, appointmentID, doctorID)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	l.log.Booking(ctx, "complete", outcome, logrus.Fields{
		"appointment_id": appointmentID,
		"doctor_id":      doctorID,
	})
	return err
}

func (l *Ledger) markCompleted(ctx context.Context, appointmentID, doctorID string) error {
	if appointmentID == "" || doctorID == "" {
		return apperr.Validation("Missing details")
	}

	apt, err := l.store.FindAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			return apperr.NotAuthorized("Mark Failed")
		}
		return apperr.Wrap(apperr.KindStore, "Failed to load appointment", err)
	}
	if apt.DocID != doctorID {
		return apperr.NotAuthorized("Mark Failed")
	}
	if apt.Cancelled {
		return apperr.New(apperr.KindInvalidState, "Cancelled appointments cannot be completed")
	}
	if apt.IsCompleted {
		return nil
	}

	ok, err := l.store.SetCompleted(ctx, appointmentID)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to complete appointment", err)
	}
	if !ok {
		return apperr.New(apperr.KindInvalidState, "Cancelled appointments cannot be completed")
	}
	return nil
}

// PatientAppointments lists the patient's appointments, newest first.
func (l *Ledger) PatientAppointments(ctx context.Context, patientID string) ([]models.Appointment, error) {
	if patientID == "" {
		return nil, apperr.Validation("Missing details")
	}
	return l.list(ctx, AppointmentFilter{UserID: patientID}, true)
}

// DoctorAppointments lists the doctor's appointments in booking order.
func (l *Ledger) DoctorAppointments(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	if doctorID == "" {
		return nil, apperr.Validation("Missing details")
	}
	return l.list(ctx, AppointmentFilter{DoctorID: doctorID}, false)
}

// AllAppointments lists every appointment in booking order.
func (l *Ledger) AllAppointments(ctx context.Context) ([]models.Appointment, error) {
	return l.list(ctx, AppointmentFilter{}, false)
}

func (l *Ledger) list(ctx context.Context, filter AppointmentFilter, newestFirst bool) ([]models.Appointment, error) {
	apts, err := l.store.ListAppointments(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load appointments", err)
	}
	sortByBooking(apts)
	if newestFirst {
		reverse(apts)
	}
	if apts == nil {
		apts = []models.Appointment{}
	}
	return apts, nil
}

func (l *Ledger) findAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	apt, err := l.store.FindAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			return nil, apperr.NotFound("Appointment not found")
		}
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load appointment", err)
	}
	return apt, nil
}

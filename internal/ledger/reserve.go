package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// ReserveRequest is a booking request for one slot.
type ReserveRequest struct {
	DoctorID  string
	PatientID string
	SlotDate  string
	SlotTime  string
}

func (r *ReserveRequest) normalize() error {
	r.DoctorID = strings.TrimSpace(r.DoctorID)
	r.PatientID = strings.TrimSpace(r.PatientID)
	r.SlotDate = strings.TrimSpace(r.SlotDate)
	r.SlotTime = strings.TrimSpace(r.SlotTime)

	if r.DoctorID == "" || r.PatientID == "" || r.SlotDate == "" || r.SlotTime == "" {
		return apperr.Validation("Missing details")
	}

	// Aliases of one slot must collapse to one key before the claim.
	date, err := models.NormalizeSlotDate(r.SlotDate)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid slot date", err)
	}
	slotTime, err := models.NormalizeSlotTime(r.SlotTime)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid slot time", err)
	}
	r.SlotDate, r.SlotTime = date, slotTime
	return nil
}

// Reserve books slotTime on slotDate with the doctor for the patient.
func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest) (*models.Appointment, error) {
	apt, err := l.reserve(ctx, &req)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	monitoring.ObserveReservation(outcome)
	fields := logrus.Fields{
		"doctor_id": req.DoctorID,
		"user_id":   req.PatientID,
		"slot_date": req.SlotDate,
		"slot_time": req.SlotTime,
	}
	if apt != nil {
		fields["appointment_id"] = apt.ID.Hex()
	}
	l.log.Booking(ctx, "reserve", outcome, fields)
	return apt, err
}

func (l *Ledger) reserve(ctx context.Context, req *ReserveRequest) (*models.Appointment, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	waitStart := time.Now()
	unlock, err := l.locker.Lock(ctx, slotLockKey(req.DoctorID, req.SlotDate))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Slot is busy, please retry", err)
	}
	defer unlock()
	monitoring.ObserveLockWait(time.Since(waitStart))

	doctor, err := l.findDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if err := checkBookable(doctor, req.SlotDate, req.SlotTime); err != nil {
		return nil, err
	}

	user, err := l.store.FindUser(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load user", err)
	}

	apt := &models.Appointment{
		UserID:   req.PatientID,
		DocID:    req.DoctorID,
		SlotDate: req.SlotDate,
		SlotTime: req.SlotTime,
		UserData: user.Profile(),
		DocData:  doctor.Profile(),
		Amount:   doctor.Fees,
		Date:     l.now().UTC(),
	}

	if tx, ok := l.transactor(); ok {
		err = tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := l.claim(ctx, req); err != nil {
				return err
			}
			return l.insert(ctx, apt)
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := l.claim(ctx, req); err != nil {
			return nil, err
		}
		if err := l.insert(ctx, apt); err != nil {
			// Undo the claim so the slot map never shows a time with no
			// appointment behind it.
			if relErr := l.store.ReleaseSlot(ctx, req.DoctorID, req.SlotDate, req.SlotTime); relErr != nil {
				l.log.WithContext(ctx).WithError(relErr).WithFields(logrus.Fields{
					"doctor_id": req.DoctorID,
					"slot_date": req.SlotDate,
					"slot_time": req.SlotTime,
				}).Error("Failed to release slot after appointment insert failed")
			}
			return nil, err
		}
	}

	l.publish(ctx, models.SlotEventBooked, req.DoctorID, req.SlotDate, req.SlotTime)
	return apt, nil
}

// claim applies the conditional slot update. A claim that matches nothing
// is explained by re-reading the doctor.
func (l *Ledger) claim(ctx context.Context, req *ReserveRequest) error {
	ok, err := l.store.ClaimSlot(ctx, req.DoctorID, req.SlotDate, req.SlotTime)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to reserve slot", err)
	}
	if ok {
		return nil
	}

	doctor, err := l.findDoctor(ctx, req.DoctorID)
	if err != nil {
		return err
	}
	if err := checkBookable(doctor, req.SlotDate, req.SlotTime); err != nil {
		return err
	}
	return apperr.New(apperr.KindConflict, "Slot changed while booking, please retry")
}

func (l *Ledger) insert(ctx context.Context, apt *models.Appointment) error {
	if err := l.store.InsertAppointment(ctx, apt); err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to save appointment", err)
	}
	return nil
}

func (l *Ledger) findDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := l.store.FindDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			return nil, apperr.NotFound("Doctor not found")
		}
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load doctor", err)
	}
	return doctor, nil
}

func checkBookable(doctor *models.Doctor, slotDate, slotTime string) error {
	if !doctor.Available {
		return apperr.New(apperr.KindSlotUnavailable, "Doctor not available")
	}
	if doctor.SlotsBooked.Has(slotDate, slotTime) {
		return apperr.New(apperr.KindSlotAlreadyBooked, "Slot not available")
	}
	return nil
}

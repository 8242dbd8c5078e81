package ledger

import (
	"context"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/monitoring"
	"github.com/sirupsen/logrus"
)

// minorUnits converts a fee stored in major currency units to the unit the
// gateway charges in.
const minorUnits = 100

// RecordPayment opens a gateway order for the appointment. patientID, when
// set, must own the appointment.
func (l *Ledger) RecordPayment(ctx context.Context, appointmentID, patientID string) (*models.PaymentOrder, error) {
	order, err := l.recordPayment(ctx, appointmentID, patientID)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	monitoring.ObservePayment("order", outcome)
	fields := logrus.Fields{"appointment_id": appointmentID, "user_id": patientID}
	if order != nil {
		fields["order_id"] = order.ID
	}
	l.log.Booking(ctx, "record_payment", outcome, fields)
	return order, err
}

func (l *Ledger) recordPayment(ctx context.Context, appointmentID, patientID string) (*models.PaymentOrder, error) {
	if appointmentID == "" {
		return nil, apperr.Validation("Missing details")
	}
	if l.gateway == nil {
		return nil, apperr.New(apperr.KindGateway, "Payments are not configured")
	}

	apt, err := l.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Cancelled {
		return nil, apperr.NotFound("Appointment Cancelled or not found")
	}
	if patientID != "" && apt.UserID != patientID {
		return nil, apperr.NotAuthorized("Unauthorized action")
	}
	if apt.Payment {
		return nil, apperr.New(apperr.KindInvalidState, "Appointment already paid")
	}

	order, err := l.gateway.CreateOrder(ctx, apt.Amount*minorUnits, l.currency, appointmentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "Failed to create payment order", err)
	}

	if l.orders != nil {
		if err := l.orders.Save(ctx, order); err != nil {
			l.log.WithContext(ctx).WithError(err).WithField("order_id", order.ID).Warn("Failed to record payment order")
		}
	}
	return order, nil
}

// VerifyPayment checks the order with the gateway and marks its appointment
// paid once the gateway reports it settled. Verifying again is harmless.
func (l *Ledger) VerifyPayment(ctx context.Context, orderID string) (*models.Appointment, error) {
	apt, err := l.verifyPayment(ctx, orderID)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	monitoring.ObservePayment("verify", outcome)
	fields := logrus.Fields{"order_id": orderID}
	if apt != nil {
		fields["appointment_id"] = apt.ID.Hex()
	}
	l.log.Booking(ctx, "verify_payment", outcome, fields)
	return apt, err
}

func (l *Ledger) verifyPayment(ctx context.Context, orderID string) (*models.Appointment, error) {
	if orderID == "" {
		return nil, apperr.Validation("Missing details")
	}
	if l.gateway == nil {
		return nil, apperr.New(apperr.KindGateway, "Payments are not configured")
	}

	order, err := l.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "Failed to fetch payment order", err)
	}
	if !order.Paid() {
		return nil, apperr.New(apperr.KindPaymentPending, "Payment Failed")
	}

	apt, err := l.findAppointment(ctx, order.Receipt)
	if err != nil {
		return nil, err
	}
	alreadyPaid := apt.Payment
	if !alreadyPaid {
		if err := l.store.SetPaid(ctx, order.Receipt); err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "Failed to record payment", err)
		}
		apt.Payment = true
	}

	if l.orders != nil {
		if err := l.orders.MarkPaid(ctx, orderID); err != nil {
			l.log.WithContext(ctx).WithError(err).WithField("order_id", orderID).Warn("Failed to mark payment order paid")
		}
	}
	if !alreadyPaid && l.notifier != nil {
		l.notifier.PaymentConfirmed(ctx, apt)
	}
	return apt, nil
}

// Appointment returns one appointment. patientID, when set, must own it.
func (l *Ledger) Appointment(ctx context.Context, appointmentID, patientID string) (*models.Appointment, error) {
	if appointmentID == "" {
		return nil, apperr.Validation("Missing details")
	}
	apt, err := l.findAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if patientID != "" && apt.UserID != patientID {
		return nil, apperr.NotAuthorized("Unauthorized action")
	}
	return apt, nil
}

// Package ledger owns the per-doctor booked-slot map and the appointment
// lifecycle built on top of it.
package ledger

import (
	"context"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/logger"
)

// Role identifies who is asking for an operation.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Requester is a verified identity handed in by the HTTP layer.
type Requester struct {
	ID   string
	Role Role
}

// AppointmentFilter narrows ListAppointments. Empty fields match everything.
type AppointmentFilter struct {
	DoctorID string
	UserID   string
}

// Store is the persistence collaborator. Lookups that match nothing return
// apperr.ErrNoRecord.
type Store interface {
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	FindUser(ctx context.Context, id string) (*models.User, error)

	// ClaimSlot appends slotTime to the doctor's slot list for slotDate only
	// when the doctor is available and the time is not already present. It
	// reports whether the claim was applied.
	ClaimSlot(ctx context.Context, doctorID, slotDate, slotTime string) (bool, error)
	// ReleaseSlot removes slotTime from the doctor's slot list for slotDate.
	// Removing an absent time is not an error.
	ReleaseSlot(ctx context.Context, doctorID, slotDate, slotTime string) error

	InsertAppointment(ctx context.Context, apt *models.Appointment) error
	FindAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)

	// SetCancelled flips cancelled to true when the appointment is neither
	// cancelled nor completed. It reports whether the flag was flipped.
	SetCancelled(ctx context.Context, id string) (bool, error)
	// ClearCancelled flips cancelled back to false when it is set and the
	// appointment is not completed. It undoes a cancel whose slot release
	// failed.
	ClearCancelled(ctx context.Context, id string) (bool, error)
	// SetCompleted flips isCompleted to true when the appointment is not
	// cancelled. It reports whether the appointment matched.
	SetCompleted(ctx context.Context, id string) (bool, error)
	// SetPaid sets payment to true.
	SetPaid(ctx context.Context, id string) error

	CountDoctors(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Transactor is implemented by stores that can run several writes
// atomically.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker provides the mutual-exclusion unit around one doctor+date.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Gateway is the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*models.PaymentOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error)
}

// OrderLog keeps a local record of gateway orders.
type OrderLog interface {
	Save(ctx context.Context, order *models.PaymentOrder) error
	MarkPaid(ctx context.Context, orderID string) error
}

// EventPublisher is told about every slot map change.
type EventPublisher interface {
	PublishSlotEvent(ctx context.Context, event models.SlotEvent) error
}

// PaymentNotifier is told when an appointment is confirmed paid.
type PaymentNotifier interface {
	PaymentConfirmed(ctx context.Context, apt *models.Appointment)
}

// Options configures a Ledger. Store is required; everything else is
// optional and falls back to an in-process default or a no-op.
type Options struct {
	Store    Store
	Locker   Locker
	Gateway  Gateway
	Orders   OrderLog
	Events   EventPublisher
	Notifier PaymentNotifier
	Logger   *logger.Logger

	// Currency for gateway orders, "INR" when empty.
	Currency string
	// Transactions runs the claim and the appointment insert in one store
	// transaction when the store supports it.
	Transactions bool

	Now func() time.Time
}

// Ledger implements slot reservation, cancellation, completion, payment and
// dashboard aggregation.
type Ledger struct {
	store        Store
	locker       Locker
	gateway      Gateway
	orders       OrderLog
	events       EventPublisher
	notifier     PaymentNotifier
	log          *logger.Logger
	currency     string
	transactions bool
	now          func() time.Time
}

// New creates a Ledger.
func New(opts Options) *Ledger {
	l := &Ledger{
		store:        opts.Store,
		locker:       opts.Locker,
		gateway:      opts.Gateway,
		orders:       opts.Orders,
		events:       opts.Events,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		currency:     opts.Currency,
		transactions: opts.Transactions,
		now:          opts.Now,
	}
	if l.locker == nil {
		l.locker = NewKeyedMutex()
	}
	if l.log == nil {
		l.log = logger.Discard()
	}
	if l.currency == "" {
		l.currency = "INR"
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func slotLockKey(doctorID, slotDate string) string {
	return "slot:" + doctorID + ":" + slotDate
}

func (l *Ledger) publish(ctx context.Context, kind, doctorID, slotDate, slotTime string) {
	if l.events == nil {
		return
	}
	event := models.SlotEvent{
		Type:      kind,
		DoctorID:  doctorID,
		SlotDate:  slotDate,
		SlotTime:  slotTime,
		Timestamp: l.now().UTC(),
	}
	if err := l.events.PublishSlotEvent(ctx, event); err != nil {
		l.log.WithContext(ctx).WithError(err).WithField("doctor_id", doctorID).Warn("Failed to publish slot event")
	}
}

// transactor returns the store as a Transactor when transactions are
// enabled and the store supports them.
func (l *Ledger) transactor() (Transactor, bool) {
	if !l.transactions {
		return nil, false
	}
	tx, ok := l.store.(Transactor)
	return tx, ok
}

package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	slotDate = "10_6_2025"
	slotTime = "10:00"
)

type fixture struct {
	store    *store.Memory
	ledger   *ledger.Ledger
	doctor   string
	patientX string
	patientY string
	events   *mockEvents
}

// tickingClock returns strictly increasing times so booking order is
// deterministic.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func newFixture(t *testing.T, opts ledger.Options) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	doctor := &models.Doctor{Name: "Dr. A", Email: "a@clinic.test", Password: "secret", Fees: 500, Available: true}
	require.NoError(t, mem.CreateDoctor(ctx, doctor))
	x := &models.User{Name: "Patient X", Email: "x@example.com", Password: "secret"}
	require.NoError(t, mem.CreateUser(ctx, x))
	y := &models.User{Name: "Patient Y", Email: "y@example.com", Password: "secret"}
	require.NoError(t, mem.CreateUser(ctx, y))

	events := &mockEvents{}
	events.On("PublishSlotEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	if opts.Store == nil {
		opts.Store = mem
	}
	if opts.Events == nil {
		opts.Events = events
	}
	if opts.Now == nil {
		opts.Now = tickingClock()
	}

	return &fixture{
		store:    mem,
		ledger:   ledger.New(opts),
		doctor:   doctor.ID.Hex(),
		patientX: x.ID.Hex(),
		patientY: y.ID.Hex(),
		events:   events,
	}
}

func (f *fixture) reserve(t *testing.T, patient string) (*models.Appointment, error) {
	t.Helper()
	return f.ledger.Reserve(context.Background(), ledger.ReserveRequest{
		DoctorID:  f.doctor,
		PatientID: patient,
		SlotDate:  slotDate,
		SlotTime:  slotTime,
	})
}

func (f *fixture) slots(t *testing.T) []string {
	t.Helper()
	d, err := f.store.FindDoctor(context.Background(), f.doctor)
	require.NoError(t, err)
	return d.SlotsBooked[slotDate]
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishSlotEvent(ctx context.Context, event models.SlotEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*models.PaymentOrder, error) {
	args := m.Called(ctx, amount, currency, receipt)
	order, _ := args.Get(0).(*models.PaymentOrder)
	return order, args.Error(1)
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*models.PaymentOrder)
	return order, args.Error(1)
}

type mockOrderLog struct{ mock.Mock }

func (m *mockOrderLog) Save(ctx context.Context, order *models.PaymentOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderLog) MarkPaid(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) PaymentConfirmed(ctx context.Context, apt *models.Appointment) {
	m.Called(ctx, apt)
}

func TestReserveBooksSlotWithSnapshots(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	assert.Equal(t, int64(500), apt.Amount)
	assert.Equal(t, f.doctor, apt.DocID)
	assert.Equal(t, f.patientX, apt.UserID)
	assert.Equal(t, "Dr. A", apt.DocData.Name)
	assert.Equal(t, "Patient X", apt.UserData.Name)
	assert.Equal(t, models.StatusBooked, apt.Status())
	assert.Equal(t, []string{slotTime}, f.slots(t))

	stored, err := f.store.FindAppointment(context.Background(), apt.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, apt.SlotDate, stored.SlotDate)

	f.events.AssertCalled(t, "PublishSlotEvent", mock.Anything, mock.MatchedBy(func(e models.SlotEvent) bool {
		return e.Type == models.SlotEventBooked && e.DoctorID == f.doctor && e.SlotTime == slotTime
	}))
}

func TestReserveRejectsDoubleBooking(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	_, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	_, err = f.reserve(t, f.patientY)
	assert.True(t, apperr.Is(err, apperr.KindSlotAlreadyBooked), "got %v", err)
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestReserveRejectsUnavailableDoctor(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	_, err := f.store.ToggleAvailability(context.Background(), f.doctor)
	require.NoError(t, err)

	_, err = f.reserve(t, f.patientX)
	assert.True(t, apperr.Is(err, apperr.KindSlotUnavailable), "got %v", err)
	assert.Empty(t, f.slots(t))
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	cases := map[string]ledger.ReserveRequest{
		"missing doctor":  {PatientID: f.patientX, SlotDate: slotDate, SlotTime: slotTime},
		"missing patient": {DoctorID: f.doctor, SlotDate: slotDate, SlotTime: slotTime},
		"impossible date": {DoctorID: f.doctor, PatientID: f.patientX, SlotDate: "31_2_2025", SlotTime: slotTime},
		"malformed date":  {DoctorID: f.doctor, PatientID: f.patientX, SlotDate: "2025-06-10", SlotTime: slotTime},
		"malformed time":  {DoctorID: f.doctor, PatientID: f.patientX, SlotDate: slotDate, SlotTime: "25:00"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.Reserve(ctx, req)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.slots(t))
}

func TestReserveUnknownParties(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	_, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{DoctorID: "missing", PatientID: f.patientX, SlotDate: slotDate, SlotTime: slotTime})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.ledger.Reserve(ctx, ledger.ReserveRequest{DoctorID: f.doctor, PatientID: "missing", SlotDate: slotDate, SlotTime: slotTime})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Empty(t, f.slots(t))
}

func TestReserveRejectsAliasOfBookedSlot(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	assert.Equal(t, slotDate, apt.SlotDate)
	assert.Equal(t, slotTime, apt.SlotTime)

	aliases := []struct{ date, time string }{
		{"10_06_2025", slotTime},
		{"010_6_2025", slotTime},
		{slotDate, "10:00 AM"},
		{slotDate, "10:00am"},
		{" 10_06_2025 ", "10:00 am"},
	}
	for _, a := range aliases {
		_, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{
			DoctorID: f.doctor, PatientID: f.patientY, SlotDate: a.date, SlotTime: a.time,
		})
		assert.True(t, apperr.Is(err, apperr.KindSlotAlreadyBooked), "%s %s: %v", a.date, a.time, err)
	}

	d, err := f.store.FindDoctor(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{slotDate: {slotTime}}, map[string][]string(d.SlotsBooked))
}

func TestReserveStoresCanonicalSlot(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	apt, err := f.ledger.Reserve(context.Background(), ledger.ReserveRequest{
		DoctorID: f.doctor, PatientID: f.patientX, SlotDate: "10_06_2025", SlotTime: "4:30 pm",
	})
	require.NoError(t, err)
	assert.Equal(t, slotDate, apt.SlotDate)
	assert.Equal(t, "16:30", apt.SlotTime)
	assert.Equal(t, []string{"16:30"}, f.slots(t))
}

func TestCancelReleasesSlotForRebooking(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), ledger.Requester{ID: f.patientX, Role: ledger.RolePatient}))
	assert.Empty(t, f.slots(t))

	stored, err := f.store.FindAppointment(ctx, apt.ID.Hex())
	require.NoError(t, err)
	assert.True(t, stored.Cancelled)

	_, err = f.reserve(t, f.patientY)
	require.NoError(t, err)
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestCancelTwiceDoesNotFreeSomeoneElsesSlot(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()
	x := ledger.Requester{ID: f.patientX, Role: ledger.RolePatient}

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), x))

	_, err = f.reserve(t, f.patientY)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), x))
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestCancelOwnership(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	id := apt.ID.Hex()

	err = f.ledger.Cancel(ctx, id, ledger.Requester{ID: f.patientY, Role: ledger.RolePatient})
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))

	err = f.ledger.Cancel(ctx, id, ledger.Requester{ID: "other-doctor", Role: ledger.RoleDoctor})
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))

	err = f.ledger.Cancel(ctx, id, ledger.Requester{ID: f.patientX, Role: "guest"})
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))
	assert.Equal(t, []string{slotTime}, f.slots(t))

	require.NoError(t, f.ledger.Cancel(ctx, id, ledger.Requester{ID: f.doctor, Role: ledger.RoleDoctor}))
	assert.Empty(t, f.slots(t))
}

func TestAdminMayCancelAnyAppointment(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Cancel(context.Background(), apt.ID.Hex(), ledger.Requester{ID: "admin", Role: ledger.RoleAdmin}))
	assert.Empty(t, f.slots(t))
	f.events.AssertCalled(t, "PublishSlotEvent", mock.Anything, mock.MatchedBy(func(e models.SlotEvent) bool {
		return e.Type == models.SlotEventReleased
	}))
}

func TestCancelMissingAppointment(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	err := f.ledger.Cancel(context.Background(), "missing", ledger.Requester{ID: f.patientX, Role: ledger.RolePatient})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCompletedAppointmentCannotBeCancelled(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkCompleted(ctx, apt.ID.Hex(), f.doctor))

	err = f.ledger.Cancel(ctx, apt.ID.Hex(), ledger.Requester{ID: f.patientX, Role: ledger.RolePatient})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestMarkCompleted(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	id := apt.ID.Hex()

	err = f.ledger.MarkCompleted(ctx, id, "other-doctor")
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))
	stored, err := f.store.FindAppointment(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)

	err = f.ledger.MarkCompleted(ctx, "missing", f.doctor)
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))

	require.NoError(t, f.ledger.MarkCompleted(ctx, id, f.doctor))
	require.NoError(t, f.ledger.MarkCompleted(ctx, id, f.doctor))

	stored, err = f.store.FindAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status())
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestCancelledAppointmentCannotBeCompleted(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), ledger.Requester{ID: f.doctor, Role: ledger.RoleDoctor}))

	err = f.ledger.MarkCompleted(ctx, apt.ID.Hex(), f.doctor)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestPaymentRoundTripIsIdempotent(t *testing.T) {
	gateway := &mockGateway{}
	orders := &mockOrderLog{}
	notifier := &mockNotifier{}
	f := newFixture(t, ledger.Options{Gateway: gateway, Orders: orders, Notifier: notifier})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	id := apt.ID.Hex()

	created := &models.PaymentOrder{ID: "order_1", Amount: 50000, Currency: "INR", Receipt: id, Status: models.OrderStatusCreated}
	gateway.On("CreateOrder", mock.Anything, int64(50000), "INR", id).Return(created, nil).Once()
	orders.On("Save", mock.Anything, created).Return(nil).Once()

	order, err := f.ledger.RecordPayment(ctx, id, f.patientX)
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)

	paid := &models.PaymentOrder{ID: "order_1", Amount: 50000, Currency: "INR", Receipt: id, Status: models.OrderStatusPaid}
	gateway.On("FetchOrder", mock.Anything, "order_1").Return(paid, nil).Twice()
	orders.On("MarkPaid", mock.Anything, "order_1").Return(nil).Twice()
	notifier.On("PaymentConfirmed", mock.Anything, mock.Anything).Once()

	for i := 0; i < 2; i++ {
		got, err := f.ledger.VerifyPayment(ctx, "order_1")
		require.NoError(t, err)
		assert.True(t, got.Payment)
	}

	stored, err := f.store.FindAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, stored.Status())

	_, err = f.ledger.RecordPayment(ctx, id, f.patientX)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	gateway.AssertExpectations(t)
	orders.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestVerifyPaymentRequiresPaidStatus(t *testing.T) {
	gateway := &mockGateway{}
	f := newFixture(t, ledger.Options{Gateway: gateway})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	pending := &models.PaymentOrder{ID: "order_2", Receipt: apt.ID.Hex(), Status: models.OrderStatusAttempted}
	gateway.On("FetchOrder", mock.Anything, "order_2").Return(pending, nil)

	_, err = f.ledger.VerifyPayment(ctx, "order_2")
	assert.True(t, apperr.Is(err, apperr.KindPaymentPending))

	stored, err := f.store.FindAppointment(ctx, apt.ID.Hex())
	require.NoError(t, err)
	assert.False(t, stored.Payment)
}

func TestRecordPaymentRejections(t *testing.T) {
	gateway := &mockGateway{}
	f := newFixture(t, ledger.Options{Gateway: gateway})
	ctx := context.Background()

	_, err := f.ledger.RecordPayment(ctx, "missing", "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	_, err = f.ledger.RecordPayment(ctx, apt.ID.Hex(), f.patientY)
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))

	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), ledger.Requester{ID: f.patientX, Role: ledger.RolePatient}))
	_, err = f.ledger.RecordPayment(ctx, apt.ID.Hex(), f.patientX)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPaymentWrapsGatewayFailure(t *testing.T) {
	gateway := &mockGateway{}
	f := newFixture(t, ledger.Options{Gateway: gateway})

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	gateway.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err = f.ledger.RecordPayment(context.Background(), apt.ID.Hex(), "")
	assert.True(t, apperr.Is(err, apperr.KindGateway))
	assert.Equal(t, "Failed to create payment order", apperr.Message(err))
}

// failingInsertStore loses every appointment insert.
type failingInsertStore struct {
	*store.Memory
}

func (s failingInsertStore) InsertAppointment(context.Context, *models.Appointment) error {
	return errors.New("write concern timeout")
}

func TestReserveReleasesClaimWhenInsertFails(t *testing.T) {
	base := newFixture(t, ledger.Options{})
	l := ledger.New(ledger.Options{Store: failingInsertStore{base.store}})

	_, err := l.Reserve(context.Background(), ledger.ReserveRequest{
		DoctorID: base.doctor, PatientID: base.patientX, SlotDate: slotDate, SlotTime: slotTime,
	})
	assert.True(t, apperr.Is(err, apperr.KindStore))
	assert.Empty(t, base.slots(t))
}

// txStore runs transactions inline and counts them.
type txStore struct {
	*store.Memory
	mu  sync.Mutex
	txs int
}

func (s *txStore) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	s.txs++
	s.mu.Unlock()
	return fn(ctx)
}

func TestReserveUsesTransactionWhenEnabled(t *testing.T) {
	base := newFixture(t, ledger.Options{})
	tx := &txStore{Memory: base.store}
	ctx := context.Background()
	req := ledger.ReserveRequest{DoctorID: base.doctor, PatientID: base.patientX, SlotDate: slotDate, SlotTime: slotTime}

	_, err := ledger.New(ledger.Options{Store: tx}).Reserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, tx.txs)

	req.SlotTime = "11:00"
	_, err = ledger.New(ledger.Options{Store: tx, Transactions: true}).Reserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.txs)
	assert.Equal(t, []string{slotTime, "11:00"}, base.slots(t))
}

// failingReleaseStore cannot free slots.
type failingReleaseStore struct {
	*store.Memory
}

func (s failingReleaseStore) ReleaseSlot(context.Context, string, string, string) error {
	return errors.New("socket closed")
}

func TestCancelRestoresAppointmentWhenReleaseFails(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()
	x := ledger.Requester{ID: f.patientX, Role: ledger.RolePatient}

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)

	broken := ledger.New(ledger.Options{Store: failingReleaseStore{f.store}})
	err = broken.Cancel(ctx, apt.ID.Hex(), x)
	assert.True(t, apperr.Is(err, apperr.KindStore))

	stored, err := f.store.FindAppointment(ctx, apt.ID.Hex())
	require.NoError(t, err)
	assert.False(t, stored.Cancelled, "failed cancel must stay retryable")
	assert.Equal(t, []string{slotTime}, f.slots(t))

	require.NoError(t, f.ledger.Cancel(ctx, apt.ID.Hex(), x))
	assert.Empty(t, f.slots(t))

	_, err = f.reserve(t, f.patientY)
	require.NoError(t, err)
	assert.Equal(t, []string{slotTime}, f.slots(t))
}

func TestCancelUsesTransactionWhenEnabled(t *testing.T) {
	base := newFixture(t, ledger.Options{})
	tx := &txStore{Memory: base.store}
	ctx := context.Background()

	apt, err := base.reserve(t, base.patientX)
	require.NoError(t, err)

	l := ledger.New(ledger.Options{Store: tx, Transactions: true})
	require.NoError(t, l.Cancel(ctx, apt.ID.Hex(), ledger.Requester{ID: base.patientX, Role: ledger.RolePatient}))
	assert.Equal(t, 1, tx.txs)
	assert.Empty(t, base.slots(t))

	stored, err := base.store.FindAppointment(ctx, apt.ID.Hex())
	require.NoError(t, err)
	assert.True(t, stored.Cancelled)
}

func TestConcurrentReserveHasSingleWinner(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	patients := make([]string, 16)
	for i := range patients {
		u := &models.User{Name: fmt.Sprintf("P%d", i), Email: fmt.Sprintf("p%d@example.com", i)}
		require.NoError(t, f.store.CreateUser(ctx, u))
		patients[i] = u.ID.Hex()
	}

	var wg sync.WaitGroup
	results := make([]error, len(patients))
	for i, p := range patients {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			_, results[i] = f.reserve(t, p)
		}(i, p)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindSlotAlreadyBooked), "got %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, []string{slotTime}, f.slots(t))

	apts, err := f.ledger.DoctorAppointments(ctx, f.doctor)
	require.NoError(t, err)
	assert.Len(t, apts, 1)
}

func TestComputeDashboard(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	completed, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkCompleted(ctx, completed.ID.Hex(), f.doctor))

	require.NoError(t, f.store.UpdateDoctor(ctx, f.doctor, store.DoctorUpdate{Fees: ptr(int64(300))}))
	cancelled, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{
		DoctorID: f.doctor, PatientID: f.patientY, SlotDate: slotDate, SlotTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), cancelled.Amount)
	require.NoError(t, f.ledger.Cancel(ctx, cancelled.ID.Hex(), ledger.Requester{ID: f.patientY, Role: ledger.RolePatient}))

	dash, err := f.ledger.ComputeDashboard(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(500), dash.Earnings)
	assert.Equal(t, 2, dash.Appointments)
	assert.Equal(t, 2, dash.Patients)
	require.Len(t, dash.LatestAppointments, 2)
	assert.Equal(t, cancelled.ID, dash.LatestAppointments[0].ID)
	assert.Equal(t, completed.ID, dash.LatestAppointments[1].ID)
}

func TestDashboardCountsPaidAndCompletedOnce(t *testing.T) {
	gateway := &mockGateway{}
	f := newFixture(t, ledger.Options{Gateway: gateway})
	ctx := context.Background()

	apt, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	require.NoError(t, f.store.SetPaid(ctx, apt.ID.Hex()))
	require.NoError(t, f.ledger.MarkCompleted(ctx, apt.ID.Hex(), f.doctor))

	dash, err := f.ledger.ComputeDashboard(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(500), dash.Earnings)
}

func TestDashboardKeepsLatestFive(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	var last *models.Appointment
	for i := 0; i < 7; i++ {
		apt, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{
			DoctorID: f.doctor, PatientID: f.patientX, SlotDate: slotDate, SlotTime: fmt.Sprintf("1%d:00", i),
		})
		require.NoError(t, err)
		last = apt
	}

	dash, err := f.ledger.ComputeDashboard(ctx, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, 7, dash.Appointments)
	assert.Equal(t, 1, dash.Patients)
	require.Len(t, dash.LatestAppointments, 5)
	assert.Equal(t, last.ID, dash.LatestAppointments[0].ID)

	admin, err := f.ledger.AdminDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admin.Doctors)
	assert.Equal(t, int64(2), admin.Patients)
	assert.Equal(t, 7, admin.Appointments)
	assert.Len(t, admin.LatestAppointments, 5)
}

func TestPatientAppointmentsNewestFirst(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	ctx := context.Background()

	first, err := f.reserve(t, f.patientX)
	require.NoError(t, err)
	second, err := f.ledger.Reserve(ctx, ledger.ReserveRequest{
		DoctorID: f.doctor, PatientID: f.patientX, SlotDate: "11_6_2025", SlotTime: slotTime,
	})
	require.NoError(t, err)

	apts, err := f.ledger.PatientAppointments(ctx, f.patientX)
	require.NoError(t, err)
	require.Len(t, apts, 2)
	assert.Equal(t, second.ID, apts[0].ID)
	assert.Equal(t, first.ID, apts[1].ID)

	none, err := f.ledger.PatientAppointments(ctx, f.patientY)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func ptr[T any](v T) *T { return &v }

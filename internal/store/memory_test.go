package store

import (
	"context"
	"sync"
	"testing"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoctor(t *testing.T, m *Memory, available bool) *models.Doctor {
	t.Helper()
	d := &models.Doctor{Name: "Dr. A", Email: "A@clinic.test", Fees: 500, Available: available}
	require.NoError(t, m.CreateDoctor(context.Background(), d))
	return d
}

func TestMemoryClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	d := newDoctor(t, m, true)
	id := d.ID.Hex()

	ok, err := m.ClaimSlot(ctx, id, "10_6_2025", "10:00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.ClaimSlot(ctx, id, "10_6_2025", "10:00")
	require.NoError(t, err)
	assert.False(t, ok, "same time must not be claimed twice")

	got, err := m.FindDoctor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, got.SlotsBooked["10_6_2025"])

	require.NoError(t, m.ReleaseSlot(ctx, id, "10_6_2025", "10:00"))
	require.NoError(t, m.ReleaseSlot(ctx, id, "10_6_2025", "10:00"))
	got, err = m.FindDoctor(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.SlotsBooked["10_6_2025"])
}

func TestMemoryClaimRejectsUnavailableDoctor(t *testing.T) {
	m := NewMemory()
	d := newDoctor(t, m, false)

	ok, err := m.ClaimSlot(context.Background(), d.ID.Hex(), "10_6_2025", "10:00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryConcurrentClaimsHaveOneWinner(t *testing.T) {
	m := NewMemory()
	d := newDoctor(t, m, true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := m.ClaimSlot(context.Background(), d.ID.Hex(), "1_1_2026", "9:00")
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	d := newDoctor(t, m, true)
	_, err := m.ClaimSlot(ctx, d.ID.Hex(), "1_1_2026", "9:00")
	require.NoError(t, err)

	got, err := m.FindDoctor(ctx, d.ID.Hex())
	require.NoError(t, err)
	got.SlotsBooked["1_1_2026"][0] = "tampered"
	got.Available = false

	again, err := m.FindDoctor(ctx, d.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00"}, again.SlotsBooked["1_1_2026"])
	assert.True(t, again.Available)
}

func TestMemoryAppointmentFlags(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	apt := &models.Appointment{UserID: "u1", DocID: "d1"}
	require.NoError(t, m.InsertAppointment(ctx, apt))
	id := apt.ID.Hex()

	ok, err := m.SetCompleted(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetCancelled(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "completed appointment must not be cancelled")

	require.NoError(t, m.SetPaid(ctx, id))
	got, err := m.FindAppointment(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Payment)
	assert.True(t, got.IsCompleted)
	assert.False(t, got.Cancelled)

	assert.ErrorIs(t, m.SetPaid(ctx, "missing"), apperr.ErrNoRecord)
}

func TestMemoryClearCancelled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	apt := &models.Appointment{UserID: "u1", DocID: "d1"}
	require.NoError(t, m.InsertAppointment(ctx, apt))
	id := apt.ID.Hex()

	ok, err := m.ClearCancelled(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "active appointment has nothing to clear")

	ok, err = m.SetCancelled(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.ClearCancelled(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := m.FindAppointment(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Cancelled)

	ok, err = m.ClearCancelled(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryListAppointmentsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertAppointment(ctx, &models.Appointment{UserID: "u1", DocID: "d1"}))
	require.NoError(t, m.InsertAppointment(ctx, &models.Appointment{UserID: "u2", DocID: "d1"}))
	require.NoError(t, m.InsertAppointment(ctx, &models.Appointment{UserID: "u1", DocID: "d2"}))

	all, err := m.ListAppointments(ctx, ledger.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDoctor, err := m.ListAppointments(ctx, ledger.AppointmentFilter{DoctorID: "d1"})
	require.NoError(t, err)
	assert.Len(t, byDoctor, 2)

	byBoth, err := m.ListAppointments(ctx, ledger.AppointmentFilter{DoctorID: "d2", UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byBoth, 1)
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	d := newDoctor(t, m, true)

	err := m.CreateDoctor(ctx, &models.Doctor{Email: "a@clinic.test"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	found, err := m.FindDoctorByEmail(ctx, "a@CLINIC.test")
	require.NoError(t, err)
	assert.Equal(t, d.ID, found.ID)

	listed, err := m.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Email)

	available, err := m.ToggleAvailability(ctx, d.ID.Hex())
	require.NoError(t, err)
	assert.False(t, available)

	fees := int64(800)
	require.NoError(t, m.UpdateDoctor(ctx, d.ID.Hex(), DoctorUpdate{Fees: &fees}))
	got, err := m.FindDoctor(ctx, d.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.Fees)

	u := &models.User{Name: "Pat", Email: "pat@example.com"}
	require.NoError(t, m.CreateUser(ctx, u))
	phone := "12345"
	require.NoError(t, m.UpdateUser(ctx, u.ID.Hex(), UserUpdate{Phone: &phone}))
	gotUser, err := m.FindUserByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, "12345", gotUser.Phone)

	count, err := m.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

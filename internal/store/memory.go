package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. Every read returns a copy so callers can
// never mutate stored records behind its back.
type Memory struct {
	mu           sync.Mutex
	doctors      map[string]*models.Doctor
	users        map[string]*models.User
	appointments map[string]*models.Appointment
}

func NewMemory() *Memory {
	return &Memory{
		doctors:      make(map[string]*models.Doctor),
		users:        make(map[string]*models.User),
		appointments: make(map[string]*models.Appointment),
	}
}

func cloneDoctor(d *models.Doctor) *models.Doctor {
	c := *d
	if d.SlotsBooked != nil {
		c.SlotsBooked = d.SlotsBooked.Clone()
	}
	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneAppointment(a *models.Appointment) *models.Appointment {
	c := *a
	return &c
}

func (m *Memory) FindDoctor(_ context.Context, id string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.ErrNoRecord
	}
	return cloneDoctor(d), nil
}

func (m *Memory) FindDoctorByEmail(_ context.Context, email string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, d := range m.doctors {
		if d.Email == email {
			return cloneDoctor(d), nil
		}
	}
	return nil, apperr.ErrNoRecord
}

func (m *Memory) FindUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNoRecord
	}
	return cloneUser(u), nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperr.ErrNoRecord
}

func (m *Memory) FindAppointment(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, apperr.ErrNoRecord
	}
	return cloneAppointment(a), nil
}

func (m *Memory) ClaimSlot(_ context.Context, doctorID, slotDate, slotTime string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[doctorID]
	if !ok || !d.Available || d.SlotsBooked.Has(slotDate, slotTime) {
		return false, nil
	}
	if d.SlotsBooked == nil {
		d.SlotsBooked = models.SlotMap{}
	}
	d.SlotsBooked[slotDate] = append(d.SlotsBooked[slotDate], slotTime)
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) ReleaseSlot(_ context.Context, doctorID, slotDate, slotTime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[doctorID]
	if !ok {
		return nil
	}
	if _, booked := d.SlotsBooked[slotDate]; booked {
		d.SlotsBooked[slotDate] = d.SlotsBooked.Without(slotDate, slotTime)
		d.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *Memory) InsertAppointment(_ context.Context, apt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	m.appointments[apt.ID.Hex()] = cloneAppointment(apt)
	return nil
}

func (m *Memory) ListAppointments(_ context.Context, filter ledger.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range m.appointments {
		if filter.DoctorID != "" && a.DocID != filter.DoctorID {
			continue
		}
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *Memory) SetCancelled(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Cancelled || a.IsCompleted {
		return false, nil
	}
	a.Cancelled = true
	return true, nil
}

func (m *Memory) ClearCancelled(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || !a.Cancelled || a.IsCompleted {
		return false, nil
	}
	a.Cancelled = false
	return true, nil
}

func (m *Memory) SetCompleted(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.Cancelled {
		return false, nil
	}
	a.IsCompleted = true
	return true, nil
}

func (m *Memory) SetPaid(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return apperr.ErrNoRecord
	}
	a.Payment = true
	return nil
}

func (m *Memory) CountDoctors(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.doctors)), nil
}

func (m *Memory) CountUsers(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *Memory) CreateDoctor(_ context.Context, doctor *models.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doctor.Email = strings.ToLower(doctor.Email)
	for _, d := range m.doctors {
		if d.Email == doctor.Email {
			return ErrDuplicateEmail
		}
	}
	ts := time.Now().UTC()
	doctor.ID = primitive.NewObjectID()
	doctor.CreatedAt, doctor.UpdatedAt = ts, ts
	m.doctors[doctor.ID.Hex()] = cloneDoctor(doctor)
	return nil
}

func (m *Memory) ListDoctors(_ context.Context) ([]models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		c := cloneDoctor(d)
		c.Password = ""
		c.Email = ""
		out = append(out, *c)
	}
	sortDoctors(out)
	return out, nil
}

func (m *Memory) UpdateDoctor(_ context.Context, id string, u DoctorUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return apperr.ErrNoRecord
	}
	if u.Fees != nil {
		d.Fees = *u.Fees
	}
	if u.Address != nil {
		d.Address = *u.Address
	}
	if u.Available != nil {
		d.Available = *u.Available
	}
	if u.About != nil {
		d.About = *u.About
	}
	if u.Image != nil {
		d.Image = *u.Image
	}
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ToggleAvailability(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return false, apperr.ErrNoRecord
	}
	d.Available = !d.Available
	d.UpdatedAt = time.Now().UTC()
	return d.Available, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	ts := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt, user.UpdatedAt = ts, ts
	m.users[user.ID.Hex()] = cloneUser(user)
	return nil
}

func (m *Memory) UpdateUser(_ context.Context, id string, u UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return apperr.ErrNoRecord
	}
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Phone != nil {
		user.Phone = *u.Phone
	}
	if u.Address != nil {
		user.Address = *u.Address
	}
	if u.Gender != nil {
		user.Gender = *u.Gender
	}
	if u.DOB != nil {
		user.DOB = *u.DOB
	}
	if u.Image != nil {
		user.Image = *u.Image
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func sortDoctors(doctors []models.Doctor) {
	sort.Slice(doctors, func(i, j int) bool {
		if !doctors[i].CreatedAt.Equal(doctors[j].CreatedAt) {
			return doctors[i].CreatedAt.Before(doctors[j].CreatedAt)
		}
		return doctors[i].ID.Hex() < doctors[j].ID.Hex()
	})
}

var _ Store = (*Memory)(nil)

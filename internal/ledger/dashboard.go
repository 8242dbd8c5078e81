package ledger

import (
	"context"
	"sort"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
)

// latestCount is how many appointments a dashboard shows.
const latestCount = 5

// DoctorDashboard summarises one doctor's appointments.
type DoctorDashboard struct {
	Earnings           int64                `json:"earnings"`
	Appointments       int                  `json:"appointments"`
	Patients           int                  `json:"patients"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

// AdminDashboard summarises the whole clinic.
type AdminDashboard struct {
	Doctors            int64                `json:"doctors"`
	Appointments       int                  `json:"appointments"`
	Patients           int64                `json:"patients"`
	LatestAppointments []models.Appointment `json:"latestAppointments"`
}

// ComputeDashboard aggregates the doctor's appointments. Earnings count each
// completed or paid appointment once. Patients counts distinct patient ids
// including those whose appointments were cancelled.
func (l *Ledger) ComputeDashboard(ctx context.Context, doctorID string) (*DoctorDashboard, error) {
	if doctorID == "" {
		return nil, apperr.Validation("Missing details")
	}
	apts, err := l.store.ListAppointments(ctx, AppointmentFilter{DoctorID: doctorID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load appointments", err)
	}
	sortByBooking(apts)

	dash := &DoctorDashboard{Appointments: len(apts)}
	patients := make(map[string]struct{})
	for i := range apts {
		if apts[i].Billable() {
			dash.Earnings += apts[i].Amount
		}
		patients[apts[i].UserID] = struct{}{}
	}
	dash.Patients = len(patients)
	dash.LatestAppointments = latest(apts)
	return dash, nil
}

// AdminDashboard aggregates doctors, patients and appointments.
func (l *Ledger) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	doctors, err := l.store.CountDoctors(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to count doctors", err)
	}
	patients, err := l.store.CountUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to count patients", err)
	}
	apts, err := l.store.ListAppointments(ctx, AppointmentFilter{})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to load appointments", err)
	}
	sortByBooking(apts)

	return &AdminDashboard{
		Doctors:            doctors,
		Appointments:       len(apts),
		Patients:           patients,
		LatestAppointments: latest(apts),
	}, nil
}

// latest returns up to latestCount appointments, newest first.
func latest(apts []models.Appointment) []models.Appointment {
	n := len(apts)
	if n > latestCount {
		n = latestCount
	}
	out := make([]models.Appointment, 0, n)
	for i := len(apts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, apts[i])
	}
	return out
}

// sortByBooking orders appointments by booking time, then id.
func sortByBooking(apts []models.Appointment) {
	sort.SliceStable(apts, func(i, j int) bool {
		if !apts[i].Date.Equal(apts[j].Date) {
			return apts[i].Date.Before(apts[j].Date)
		}
		return apts[i].ID.Hex() < apts[j].ID.Hex()
	})
}

func reverse(apts []models.Appointment) {
	for i, j := 0, len(apts)-1; i < j; i, j = i+1, j-1 {
		apts[i], apts[j] = apts[j], apts[i]
	}
}

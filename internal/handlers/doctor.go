package handlers

import (
	"net/http"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
)

// DoctorListResponse is the public doctor directory.
type DoctorListResponse struct {
	Success bool                   `json:"success"`
	Doctors []models.DoctorListing `json:"doctors"`
}

// DoctorDashboardResponse wraps the doctor panel figures.
type DoctorDashboardResponse struct {
	Success  bool                    `json:"success"`
	DashData *ledger.DoctorDashboard `json:"dashData"`
}

// DoctorProfileResponse returns the signed-in doctor.
type DoctorProfileResponse struct {
	Success     bool           `json:"success"`
	ProfileData *models.Doctor `json:"profileData"`
}

// UpdateDoctorProfileRequest is the doctor's editable profile. Omitted
// fields keep their value.
type UpdateDoctorProfileRequest struct {
	Fees      *int64          `json:"fees" validate:"omitempty,gte=0"`
	Address   *models.Address `json:"address"`
	Available *bool           `json:"available"`
	About     *string         `json:"about"`
}

// ListDoctors returns the public directory, served from cache when warm
func ListDoctors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if doctors, ok := deps.Cache.Get(ctx); ok {
		writeJSON(w, http.StatusOK, DoctorListResponse{Success: true, Doctors: doctors})
		return
	}

	doctors, err := deps.Store.ListDoctors(ctx)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to fetch doctors", err))
		return
	}
	listings := make([]models.DoctorListing, 0, len(doctors))
	for i := range doctors {
		listings = append(listings, doctors[i].Listing())
	}
	if err := deps.Cache.Set(ctx, listings); err != nil {
		deps.Log.WithContext(ctx).WithError(err).Warn("Failed to cache doctor list")
	}
	writeJSON(w, http.StatusOK, DoctorListResponse{Success: true, Doctors: listings})
}

// ListDoctorAppointments returns the doctor's appointments in booking order
func ListDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	apts, err := deps.Ledger.DoctorAppointments(ctx, who.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Success: true, Appointments: apts})
}

// CompleteAppointment marks one of the doctor's appointments completed
func CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	var req AppointmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if err := deps.Ledger.MarkCompleted(ctx, req.AppointmentID, who.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Appointment Completed")
}

// GetDoctorDashboard returns earnings and appointment figures
func GetDoctorDashboard(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	dash, err := deps.Ledger.ComputeDashboard(ctx, who.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DoctorDashboardResponse{Success: true, DashData: dash})
}

// GetDoctorProfile returns the signed-in doctor's profile
func GetDoctorProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	doctor, err := deps.Store.FindDoctor(ctx, who.ID)
	if err != nil {
		writeError(w, r, notFoundOr(err, "Doctor not found"))
		return
	}
	writeJSON(w, http.StatusOK, DoctorProfileResponse{Success: true, ProfileData: doctor})
}

// UpdateDoctorProfile updates fees, address, availability and about
func UpdateDoctorProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	var req UpdateDoctorProfileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	update := store.DoctorUpdate{
		Fees:      req.Fees,
		Address:   req.Address,
		Available: req.Available,
		About:     req.About,
	}
	if err := deps.Store.UpdateDoctor(ctx, who.ID, update); err != nil {
		writeError(w, r, notFoundOr(err, "Doctor not found"))
		return
	}
	refreshDoctorCache(ctx)
	writeOK(w, "Profile Updated")
}

// ChangeDoctorAvailability lets a doctor toggle their own availability
func ChangeDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	toggleAvailability(w, r, who.ID)
}

func toggleAvailability(w http.ResponseWriter, r *http.Request, doctorID string) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := deps.Store.ToggleAvailability(ctx, doctorID); err != nil {
		writeError(w, r, notFoundOr(err, "Doctor not found"))
		return
	}
	refreshDoctorCache(ctx)
	writeOK(w, "Availability Changed")
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/services"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/utils"
)

// IPBlocklist is the admin view of the Redis rate limiter.
type IPBlocklist interface {
	BlockedIPs(ctx context.Context) ([]string, error)
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
	UnblockIP(ctx context.Context, ip string) error
}

var blocklist IPBlocklist

// InitBlocklist enables the blocked-IP admin routes.
func InitBlocklist(b IPBlocklist) {
	blocklist = b
}

// AdminDoctorsResponse lists every doctor for the admin panel.
type AdminDoctorsResponse struct {
	Success bool            `json:"success"`
	Doctors []models.Doctor `json:"doctors"`
}

// AdminDashboardResponse wraps the admin panel figures.
type AdminDashboardResponse struct {
	Success  bool                   `json:"success"`
	DashData *ledger.AdminDashboard `json:"dashData"`
}

// ChangeAvailabilityRequest names the doctor whose availability flips.
type ChangeAvailabilityRequest struct {
	DocID string `json:"docId" validate:"required"`
}

// AddDoctorForm is the multipart form the admin panel posts.
type AddDoctorForm struct {
	Name       string `validate:"required"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=8"`
	Speciality string `validate:"required"`
	Degree     string `validate:"required"`
	Experience string `validate:"required"`
	About      string `validate:"required"`
	Fees       int64  `validate:"gt=0"`
	Address    string `validate:"required"`
}

// AddDoctor creates a doctor account with a profile image
func AddDoctor(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeError(w, r, err)
		return
	}

	fees, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("fees")), 10, 64)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Missing details")
		return
	}
	form := AddDoctorForm{
		Name:       strings.TrimSpace(r.FormValue("name")),
		Email:      strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Password:   r.FormValue("password"),
		Speciality: strings.TrimSpace(r.FormValue("speciality")),
		Degree:     strings.TrimSpace(r.FormValue("degree")),
		Experience: strings.TrimSpace(r.FormValue("experience")),
		About:      strings.TrimSpace(r.FormValue("about")),
		Fees:       fees,
		Address:    r.FormValue("address"),
	}
	if err := check(&form); err != nil {
		writeError(w, r, err)
		return
	}
	address, err := parseAddress(form.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	imageURL, err := uploadFormImage(r, services.DoctorImageFolder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if imageURL == "" {
		writeFail(w, http.StatusBadRequest, "Missing details")
		return
	}

	hashedPassword, err := utils.HashPassword(form.Password)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to process password", err))
		return
	}

	doctor := &models.Doctor{
		Name:        form.Name,
		Email:       form.Email,
		Password:    hashedPassword,
		Image:       imageURL,
		Speciality:  form.Speciality,
		Degree:      form.Degree,
		Experience:  form.Experience,
		About:       form.About,
		Fees:        form.Fees,
		Address:     *address,
		Available:   true,
		SlotsBooked: models.SlotMap{},
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if err := deps.Store.CreateDoctor(ctx, doctor); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeFail(w, http.StatusConflict, "Doctor already exists")
			return
		}
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to add doctor", err))
		return
	}
	refreshDoctorCache(ctx)
	writeOK(w, "Doctor Added")
}

// AllDoctors returns every doctor for the admin panel
func AllDoctors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	doctors, err := deps.Store.ListDoctors(ctx)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to fetch doctors", err))
		return
	}
	writeJSON(w, http.StatusOK, AdminDoctorsResponse{Success: true, Doctors: doctors})
}

// AdminChangeAvailability toggles any doctor's availability
func AdminChangeAvailability(w http.ResponseWriter, r *http.Request) {
	var req ChangeAvailabilityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	toggleAvailability(w, r, req.DocID)
}

// AllAppointments returns every appointment in booking order
func AllAppointments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	apts, err := deps.Ledger.AllAppointments(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Success: true, Appointments: apts})
}

// GetAdminDashboard returns clinic-wide counts
func GetAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	dash, err := deps.Ledger.AdminDashboard(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdminDashboardResponse{Success: true, DashData: dash})
}

// GetBlockedIPs returns all currently blocked IP addresses
func GetBlockedIPs(w http.ResponseWriter, r *http.Request) {
	if blocklist == nil {
		writeFail(w, http.StatusServiceUnavailable, "Rate limiting is not enabled")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	ips, err := blocklist.BlockedIPs(ctx)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to fetch blocked IPs", err))
		return
	}
	if ips == nil {
		ips = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"blocked_ips": ips,
		"count":       len(ips),
	})
}

// UnblockIP unblocks an IP address
func UnblockIP(w http.ResponseWriter, r *http.Request) {
	if blocklist == nil {
		writeFail(w, http.StatusServiceUnavailable, "Rate limiting is not enabled")
		return
	}
	ipAddress := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ipAddress == "" {
		writeFail(w, http.StatusBadRequest, "IP address is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	isBlocked, err := blocklist.IsIPBlocked(ctx, ipAddress)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to check block status", err))
		return
	}
	if !isBlocked {
		writeOK(w, "IP address is not currently blocked")
		return
	}
	if err := blocklist.UnblockIP(ctx, ipAddress); err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to unblock IP", err))
		return
	}
	writeOK(w, "IP address unblocked successfully")
}

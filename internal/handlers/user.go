package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/middleware"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/services"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/go-chi/chi/v5"
)

// BookAppointmentRequest asks for one slot of one doctor.
type BookAppointmentRequest struct {
	DocID    string `json:"docId" validate:"required"`
	SlotDate string `json:"slotDate" validate:"required"`
	SlotTime string `json:"slotTime" validate:"required"`
}

// AppointmentRequest names an appointment to act on.
type AppointmentRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
}

// VerifyPaymentRequest carries the gateway order returned to the browser.
type VerifyPaymentRequest struct {
	OrderID string `json:"razorpay_order_id" validate:"required"`
}

// UserProfileResponse is returned by get-profile.
type UserProfileResponse struct {
	Success  bool         `json:"success"`
	UserData *models.User `json:"userData"`
}

// AppointmentsResponse lists appointments.
type AppointmentsResponse struct {
	Success      bool                 `json:"success"`
	Appointments []models.Appointment `json:"appointments"`
}

// BookingResponse is returned after a successful reservation.
type BookingResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Appointment *models.Appointment `json:"appointment"`
}

// OrderResponse hands the gateway order to the checkout widget.
type OrderResponse struct {
	Success bool                 `json:"success"`
	Order   *models.PaymentOrder `json:"order"`
}

// requester returns the identity RequireRole stored on the request.
func requester(w http.ResponseWriter, r *http.Request) (ledger.Requester, bool) {
	who, ok := middleware.RequesterFrom(r.Context())
	if !ok || who.ID == "" {
		writeFail(w, http.StatusUnauthorized, "Not Authorized Login Again")
		return ledger.Requester{}, false
	}
	return who, true
}

// GetUserProfile returns the signed-in patient
func GetUserProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := deps.Store.FindUser(ctx, who.ID)
	if err != nil {
		writeError(w, r, notFoundOr(err, "User not found"))
		return
	}
	writeJSON(w, http.StatusOK, UserProfileResponse{Success: true, UserData: user})
}

// UpdateUserProfile updates the patient's profile from a multipart form
// with an optional image.
func UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	dob := strings.TrimSpace(r.FormValue("dob"))
	gender := strings.TrimSpace(r.FormValue("gender"))
	if name == "" || phone == "" || dob == "" || gender == "" {
		writeFail(w, http.StatusBadRequest, "Data Missing")
		return
	}
	address, err := parseAddress(r.FormValue("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	update := store.UserUpdate{Name: &name, Phone: &phone, DOB: &dob, Gender: &gender, Address: address}
	imageURL, err := uploadFormImage(r, services.PatientImageFolder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if imageURL != "" {
		update.Image = &imageURL
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if err := deps.Store.UpdateUser(ctx, who.ID, update); err != nil {
		writeError(w, r, notFoundOr(err, "User not found"))
		return
	}
	writeOK(w, "Profile Updated")
}

// BookAppointment reserves a slot for the signed-in patient
func BookAppointment(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	apt, err := deps.Ledger.Reserve(ctx, ledger.ReserveRequest{
		DoctorID:  req.DocID,
		PatientID: who.ID,
		SlotDate:  req.SlotDate,
		SlotTime:  req.SlotTime,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{Success: true, Message: "Appointment Booked", Appointment: apt})
}

// ListUserAppointments returns the patient's appointments, newest first
func ListUserAppointments(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	apts, err := deps.Ledger.PatientAppointments(ctx, who.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Success: true, Appointments: apts})
}

// CancelAppointment cancels an appointment for whoever RequireRole
// authenticated. The same handler serves the patient, doctor and admin
// routes.
func CancelAppointment(w http.ResponseWriter, r *http.Request) {
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
	if err := deps.Ledger.Cancel(ctx, req.AppointmentID, who); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Appointment Cancelled")
}

// PaymentRazorpay opens a gateway order for an appointment
func PaymentRazorpay(w http.ResponseWriter, r *http.Request) {
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
	order, err := deps.Ledger.RecordPayment(ctx, req.AppointmentID, who.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Success: true, Order: order})
}

// VerifyRazorpay confirms a gateway order and marks its appointment paid
func VerifyRazorpay(w http.ResponseWriter, r *http.Request) {
	if _, ok := requester(w, r); !ok {
		return
	}
	var req VerifyPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := deps.Ledger.VerifyPayment(ctx, req.OrderID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Payment Successful")
}

// DownloadInvoice streams the PDF receipt of a paid appointment
func DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	who, ok := requester(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()

	apt, err := deps.Ledger.Appointment(ctx, chi.URLParam(r, "appointmentId"), who.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !apt.Payment {
		writeError(w, r, apperr.New(apperr.KindPaymentPending, "Appointment is not paid"))
		return
	}

	pdf, err := services.RenderInvoice(apt, deps.Currency)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to render invoice", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, apt.ID.Hex()))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// parseForm accepts multipart forms and falls back to url-encoded ones.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(10 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return apperr.Validation("Invalid form data")
	}
	return nil
}

// notFoundOr turns a missing record into a NotFound with message and wraps
// anything else as a store error.
func notFoundOr(err error, message string) error {
	if errors.Is(err, apperr.ErrNoRecord) {
		return apperr.NotFound(message)
	}
	return apperr.Wrap(apperr.KindStore, "Database error", err)
}

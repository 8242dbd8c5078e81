package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/services"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// ImageUploader stores a profile image and returns its URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error)
}

// Deps holds everything the handlers call into.
type Deps struct {
	Ledger   *ledger.Ledger
	Store    store.Store
	Tokens   *services.TokenService
	Cache    *services.DoctorCache
	Hub      *services.SlotHub
	Uploader ImageUploader // nil when uploads are not configured
	Log      *logger.Logger

	AdminEmail     string
	AdminPassword  string
	Currency       string
	Timeout        time.Duration
	AllowedOrigins []string // slot feed origins; empty allows any
}

var (
	deps     Deps
	validate = validator.New()
)

// Init installs the dependencies used by every handler in this package.
func Init(d Deps) {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.Currency == "" {
		d.Currency = "INR"
	}
	if d.Hub == nil {
		d.Hub = services.NewSlotHub()
	}
	deps = d
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), deps.Timeout)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindUnauthenticated:   http.StatusUnauthorized,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindNotAuthorized:     http.StatusForbidden,
	apperr.KindSlotUnavailable:   http.StatusConflict,
	apperr.KindSlotAlreadyBooked: http.StatusConflict,
	apperr.KindInvalidState:      http.StatusConflict,
	apperr.KindPaymentPending:    http.StatusPaymentRequired,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindStore:             http.StatusInternalServerError,
	apperr.KindGateway:           http.StatusBadGateway,
}

// writeError maps err to a status and writes the failure envelope. Causes
// are logged, never returned to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, ok := statusByKind[apperr.KindOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := apperr.Message(err)
	if status >= http.StatusInternalServerError {
		deps.Log.WithContext(r.Context()).WithError(err).Error("Request failed")
	}
	writeFail(w, status, message)
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return check(dst)
}

func check(dst interface{}) error {
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.Validation(fieldMessage(fieldErrs[0]))
		}
		return apperr.Validation("Invalid request body")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Missing details"
	case "email":
		return "Please enter a valid email"
	case "min":
		if strings.EqualFold(fe.Field(), "password") {
			return "Password must be at least 8 characters long"
		}
	}
	return "Invalid " + strings.ToLower(fe.Field())
}

// uploadFormImage uploads the optional "image" file of a multipart form.
// An empty URL means no file was sent.
func uploadFormImage(r *http.Request, folder string) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperr.Validation("Invalid image upload")
	}
	file.Close()

	if deps.Uploader == nil {
		return "", apperr.New(apperr.KindGateway, "Image uploads are not configured")
	}
	url, err := deps.Uploader.UploadImage(r.Context(), header, folder)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGateway, "Failed to upload image", err)
	}
	return url, nil
}

// parseAddress accepts the address either as an object or as the JSON
// string the multipart forms send.
func parseAddress(raw string) (*models.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var addr models.Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return nil, apperr.Validation("Invalid address")
	}
	return &addr, nil
}

// refreshDoctorCache drops the cached doctor list after a directory change.
func refreshDoctorCache(ctx context.Context) {
	if err := deps.Cache.Invalidate(ctx); err != nil {
		deps.Log.WithContext(ctx).WithError(err).Warn("Failed to invalidate doctor cache")
	}
}

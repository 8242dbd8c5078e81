package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/internal/store"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"github.com/AnshRaj112/prescripto-backend/pkg/utils"
)

// RegisterRequest is the patient sign-up body.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is shared by the patient, doctor and admin sign-in routes.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the identity token on successful sign-in.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// RegisterUser handles patient registration
func RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to process password", err))
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hashedPassword,
	}
	if err := deps.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeFail(w, http.StatusConflict, "User already exists")
			return
		}
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to create user", err))
		return
	}

	issueToken(w, r, user.ID.Hex(), ledger.RolePatient)
}

// LoginUser handles patient sign-in
func LoginUser(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	user, err := deps.Store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			writeFail(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to sign in", err))
		return
	}

	if ok, _ := utils.VerifyPassword(req.Password, user.Password); !ok {
		writeFail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	issueToken(w, r, user.ID.Hex(), ledger.RolePatient)
}

// LoginDoctor handles doctor sign-in
func LoginDoctor(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	doctor, err := deps.Store.FindDoctorByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNoRecord) {
			writeFail(w, http.StatusNotFound, "Doctor not found")
			return
		}
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to sign in", err))
		return
	}

	if ok, _ := utils.VerifyPassword(req.Password, doctor.Password); !ok {
		writeFail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	issueToken(w, r, doctor.ID.Hex(), ledger.RoleDoctor)
}

// LoginAdmin checks the configured admin credentials. There is no admin
// account table.
func LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if deps.AdminEmail == "" || deps.AdminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Email), []byte(deps.AdminEmail)) != 1 ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(deps.AdminPassword)) != 1 {
		writeFail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	issueToken(w, r, deps.AdminEmail, ledger.RoleAdmin)
}

func issueToken(w http.ResponseWriter, r *http.Request, subject string, role ledger.Role) {
	token, err := deps.Tokens.Issue(subject, role)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindStore, "Failed to issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Token: token})
}

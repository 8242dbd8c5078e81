// Package store holds the persistence collaborators: a MongoDB store for
// production and an in-memory store for tests and local runs.
package store

import (
	"context"
	"errors"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
)

// ErrDuplicateEmail is returned when an account with the same email exists.
var ErrDuplicateEmail = errors.New("email already registered")

// DoctorUpdate is a partial doctor profile update. Nil fields are left as
// they are.
type DoctorUpdate struct {
	Fees      *int64
	Address   *models.Address
	Available *bool
	About     *string
	Image     *string
}

// UserUpdate is a partial patient profile update.
type UserUpdate struct {
	Name    *string
	Phone   *string
	Address *models.Address
	Gender  *string
	DOB     *string
	Image   *string
}

// Store is everything the HTTP layer needs: the ledger's persistence
// contract plus the doctor and patient directory.
type Store interface {
	ledger.Store

	CreateDoctor(ctx context.Context, doctor *models.Doctor) error
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	UpdateDoctor(ctx context.Context, id string, update DoctorUpdate) error
	// ToggleAvailability flips the availability flag and returns the new
	// value.
	ToggleAvailability(ctx context.Context, id string) (bool, error)

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) error
}

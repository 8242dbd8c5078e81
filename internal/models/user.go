package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Don't return password in JSON

	Image   string  `bson:"image,omitempty" json:"image,omitempty"`
	Phone   string  `bson:"phone,omitempty" json:"phone,omitempty"`
	Address Address `bson:"address" json:"address"`
	Gender  string  `bson:"gender,omitempty" json:"gender,omitempty"`
	DOB     string  `bson:"dob,omitempty" json:"dob,omitempty"`
}

// PatientProfile is the patient snapshot stored on an appointment.
type PatientProfile struct {
	ID      string  `bson:"_id" json:"_id"`
	Name    string  `bson:"name" json:"name"`
	Email   string  `bson:"email" json:"email"`
	Image   string  `bson:"image,omitempty" json:"image,omitempty"`
	Phone   string  `bson:"phone,omitempty" json:"phone,omitempty"`
	Address Address `bson:"address" json:"address"`
	Gender  string  `bson:"gender,omitempty" json:"gender,omitempty"`
	DOB     string  `bson:"dob,omitempty" json:"dob,omitempty"`
}

// Profile snapshots the user without credentials.
func (u *User) Profile() PatientProfile {
	return PatientProfile{
		ID:      u.ID.Hex(),
		Name:    u.Name,
		Email:   u.Email,
		Image:   u.Image,
		Phone:   u.Phone,
		Address: u.Address,
		Gender:  u.Gender,
		DOB:     u.DOB,
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is the two-line postal address shown on profiles.
type Address struct {
	Line1 string `bson:"line1" json:"line1"`
	Line2 string `bson:"line2" json:"line2"`
}

// SlotMap maps a slot date key ("D_M_YYYY") to the times booked on that date.
type SlotMap map[string][]string

// Has reports whether time is booked on date.
func (m SlotMap) Has(date, time string) bool {
	for _, t := range m[date] {
		if t == time {
			return true
		}
	}
	return false
}

// Without returns the times booked on date minus time. A time that is not
// booked leaves the list unchanged.
func (m SlotMap) Without(date, time string) []string {
	out := make([]string, 0, len(m[date]))
	for _, t := range m[date] {
		if t != time {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy of the map.
func (m SlotMap) Clone() SlotMap {
	out := make(SlotMap, len(m))
	for date, times := range m {
		out[date] = append([]string(nil), times...)
	}
	return out
}

type Doctor struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Don't return password in JSON

	Image      string  `bson:"image" json:"image"`
	Speciality string  `bson:"speciality" json:"speciality"`
	Degree     string  `bson:"degree" json:"degree"`
	Experience string  `bson:"experience" json:"experience"`
	About      string  `bson:"about" json:"about"`
	Fees       int64   `bson:"fees" json:"fees"`
	Address    Address `bson:"address" json:"address"`

	Available   bool    `bson:"available" json:"available"`
	SlotsBooked SlotMap `bson:"slots_booked,omitempty" json:"slots_booked"`
}

// DoctorProfile is the doctor snapshot stored on an appointment and returned
// by public listings. It never carries credentials.
type DoctorProfile struct {
	ID         string  `bson:"_id" json:"_id"`
	Name       string  `bson:"name" json:"name"`
	Image      string  `bson:"image" json:"image"`
	Speciality string  `bson:"speciality" json:"speciality"`
	Degree     string  `bson:"degree" json:"degree"`
	Experience string  `bson:"experience" json:"experience"`
	About      string  `bson:"about" json:"about"`
	Fees       int64   `bson:"fees" json:"fees"`
	Address    Address `bson:"address" json:"address"`
	Available  bool    `bson:"available" json:"available"`
}

// Profile snapshots the public part of the doctor.
func (d *Doctor) Profile() DoctorProfile {
	return DoctorProfile{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
		Available:  d.Available,
	}
}

// DoctorListing is a public doctor entry including booked slots, used by
// the booking page to grey out taken times.
type DoctorListing struct {
	DoctorProfile `bson:",inline"`
	SlotsBooked   SlotMap `bson:"slots_booked" json:"slots_booked"`
}

// Listing returns the public listing entry for the doctor.
func (d *Doctor) Listing() DoctorListing {
	slots := d.SlotsBooked
	if slots == nil {
		slots = SlotMap{}
	}
	return DoctorListing{DoctorProfile: d.Profile(), SlotsBooked: slots}
}

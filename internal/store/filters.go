package store

import (
	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func slotField(slotDate string) string {
	return "slots_booked." + slotDate
}

// claimSlotFilter matches the doctor only while it is available and the
// time is not yet booked on that date.
func claimSlotFilter(id primitive.ObjectID, slotDate, slotTime string) bson.M {
	return bson.M{
		"_id":               id,
		"available":         true,
		slotField(slotDate): bson.M{"$ne": slotTime},
	}
}

func claimSlotUpdate(slotDate, slotTime string, now primitive.DateTime) bson.M {
	return bson.M{
		"$push": bson.M{slotField(slotDate): slotTime},
		"$set":  bson.M{"updated_at": now},
	}
}

func releaseSlotUpdate(slotDate, slotTime string, now primitive.DateTime) bson.M {
	return bson.M{
		"$pull": bson.M{slotField(slotDate): slotTime},
		"$set":  bson.M{"updated_at": now},
	}
}

func cancelFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "cancelled": false, "isCompleted": false}
}

func uncancelFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "cancelled": true, "isCompleted": false}
}

func completeFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "cancelled": false}
}

func setFlag(name string) bson.M {
	return bson.M{"$set": bson.M{name: true}}
}

func clearFlag(name string) bson.M {
	return bson.M{"$set": bson.M{name: false}}
}

// toggleAvailabilityPipeline flips the flag server-side so concurrent
// toggles never read a stale value.
func toggleAvailabilityPipeline(now primitive.DateTime) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "available", Value: bson.D{{Key: "$not", Value: bson.A{"$available"}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

func appointmentFilter(f ledger.AppointmentFilter) bson.M {
	filter := bson.M{}
	if f.DoctorID != "" {
		filter["docId"] = f.DoctorID
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	return filter
}

func doctorUpdateSet(u DoctorUpdate, now primitive.DateTime) bson.M {
	set := bson.M{"updated_at": now}
	if u.Fees != nil {
		set["fees"] = *u.Fees
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.Available != nil {
		set["available"] = *u.Available
	}
	if u.About != nil {
		set["about"] = *u.About
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	return bson.M{"$set": set}
}

func userUpdateSet(u UserUpdate, now primitive.DateTime) bson.M {
	set := bson.M{"updated_at": now}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.DOB != nil {
		set["dob"] = *u.DOB
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	return bson.M{"$set": set}
}

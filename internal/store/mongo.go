package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/ledger"
	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	doctorsCollection      = "doctors"
	usersCollection        = "users"
	appointmentsCollection = "appointments"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	db           *mongo.Database
	doctors      *mongo.Collection
	users        *mongo.Collection
	appointments *mongo.Collection
	timeout      time.Duration
}

// NewMongoStore wraps db. Each operation is bounded by timeout on top of the
// caller's context.
func NewMongoStore(db *mongo.Database, timeout time.Duration) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{
		db:           db,
		doctors:      db.Collection(doctorsCollection),
		users:        db.Collection(usersCollection),
		appointments: db.Collection(appointmentsCollection),
		timeout:      timeout,
	}
}

// EnsureIndexes creates the unique email indexes and the appointment lookup
// indexes. Called on startup after Mongo has connected.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.doctors: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("idx_doctor_email").SetUnique(true)},
		},
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("idx_user_email").SetUnique(true)},
		},
		s.appointments: {
			{Keys: bson.D{{Key: "docId", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("idx_doc_date")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}, Options: options.Index().SetName("idx_user_date")},
		},
	}
	for col, idx := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// RunInTransaction runs fn in a multi-document transaction. Requires a
// replica set or sharded cluster.
func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func now() primitive.DateTime {
	return primitive.NewDateTimeFromTime(time.Now().UTC())
}

// objectID parses id. Malformed ids cannot match any record.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrNoRecord
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrNoRecord
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *MongoStore) findOne(ctx context.Context, col *mongo.Collection, filter bson.M, out interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return notFound(col.FindOne(ctx, filter).Decode(out))
}

func (s *MongoStore) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doctor models.Doctor
	if err := s.findOne(ctx, s.doctors, bson.M{"_id": oid}, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (s *MongoStore) FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.findOne(ctx, s.doctors, bson.M{"email": strings.ToLower(email)}, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (s *MongoStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.findOne(ctx, s.users, bson.M{"_id": oid}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, s.users, bson.M{"email": strings.ToLower(email)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var apt models.Appointment
	if err := s.findOne(ctx, s.appointments, bson.M{"_id": oid}, &apt); err != nil {
		return nil, err
	}
	return &apt, nil
}

func (s *MongoStore) ClaimSlot(ctx context.Context, doctorID, slotDate, slotTime string) (bool, error) {
	oid, err := objectID(doctorID)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.doctors.UpdateOne(ctx, claimSlotFilter(oid, slotDate, slotTime), claimSlotUpdate(slotDate, slotTime, now()))
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) ReleaseSlot(ctx context.Context, doctorID, slotDate, slotTime string) error {
	oid, err := objectID(doctorID)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = s.doctors.UpdateOne(ctx, bson.M{"_id": oid}, releaseSlotUpdate(slotDate, slotTime, now()))
	return err
}

func (s *MongoStore) InsertAppointment(ctx context.Context, apt *models.Appointment) error {
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.appointments.InsertOne(ctx, apt)
	return err
}

func (s *MongoStore) ListAppointments(ctx context.Context, filter ledger.AppointmentFilter) ([]models.Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.appointments.Find(ctx, appointmentFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	apts := []models.Appointment{}
	if err := cur.All(ctx, &apts); err != nil {
		return nil, err
	}
	return apts, nil
}

func (s *MongoStore) setAppointmentFlag(ctx context.Context, filter bson.M, flag string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.appointments.UpdateOne(ctx, filter, setFlag(flag))
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) SetCancelled(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	return s.setAppointmentFlag(ctx, cancelFilter(oid), "cancelled")
}

func (s *MongoStore) ClearCancelled(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.appointments.UpdateOne(ctx, uncancelFilter(oid), clearFlag("cancelled"))
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) SetCompleted(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	return s.setAppointmentFlag(ctx, completeFilter(oid), "isCompleted")
}

func (s *MongoStore) SetPaid(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ok, err := s.setAppointmentFlag(ctx, bson.M{"_id": oid}, "payment")
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNoRecord
	}
	return nil
}

func (s *MongoStore) CountDoctors(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.doctors.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.users.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	ts := time.Now().UTC()
	doctor.ID = primitive.NewObjectID()
	doctor.Email = strings.ToLower(doctor.Email)
	doctor.CreatedAt, doctor.UpdatedAt = ts, ts

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.doctors.InsertOne(ctx, doctor)
	return duplicate(err)
}

func (s *MongoStore) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"password": 0, "email": 0}).SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.doctors.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	doctors := []models.Doctor{}
	if err := cur.All(ctx, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *MongoStore) UpdateDoctor(ctx context.Context, id string, update DoctorUpdate) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return s.updateByID(ctx, s.doctors, oid, doctorUpdateSet(update, now()))
}

func (s *MongoStore) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"available": 1})
	var doctor models.Doctor
	err = s.doctors.FindOneAndUpdate(ctx, bson.M{"_id": oid}, toggleAvailabilityPipeline(now()), opts).Decode(&doctor)
	if err != nil {
		return false, notFound(err)
	}
	return doctor.Available, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	ts := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt, user.UpdatedAt = ts, ts

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.users.InsertOne(ctx, user)
	return duplicate(err)
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return s.updateByID(ctx, s.users, oid, userUpdateSet(update, now()))
}

func (s *MongoStore) updateByID(ctx context.Context, col *mongo.Collection, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNoRecord
	}
	return nil
}

var (
	_ Store             = (*MongoStore)(nil)
	_ ledger.Transactor = (*MongoStore)(nil)
)

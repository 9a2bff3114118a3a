package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IAppointmentService manages confirmed appointments and their slot locks.
// The slot_locks unique index is what actually serializes conflicting
// bookings; an appointment and its locks are always created and released
// together.
type IAppointmentService interface {
	CreateLocked(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	FindByID(ctx context.Context, appointmentID utils.SixID) (*models.Appointment, error)
	List(ctx context.Context, managerID utils.SixID, from, to *time.Time) ([]models.Appointment, error)
	ListForWindow(ctx context.Context, managerID utils.SixID, start, end time.Time) ([]models.Appointment, error)
	Cancel(ctx context.Context, appointmentID, managerID utils.SixID) (*models.Appointment, error)
	CancelForInquiry(ctx context.Context, inquiryID utils.SixID) error
	CompleteForInquiry(ctx context.Context, inquiryID utils.SixID) error
}

const (
	appointmentsCollection = "appointments"
	slotLocksCollection    = "slot_locks"
)

// ErrSlotLocked is returned when a slot lock insert hits the unique
// index, i.e. another booking claimed an overlapping interval first.
var ErrSlotLocked = errors.New("slot interval already locked")

// slotLockGranule sets the resolution of slot locking. An appointment
// holds one lock document per granule its interval touches, so any two
// overlapping intervals of the same (manager, type) contend on at least
// one shared lock key even when their start times and durations differ.
// Schedule blocks are minute-granular, so five minutes keeps the lock
// count small without missing an overlap.
const slotLockGranule = 5 * time.Minute

type appointmentService struct {
	db *mongo.Database
}

// NewAppointmentService creates a new appointment service.
func NewAppointmentService(db *mongo.Database) IAppointmentService {
	return &appointmentService{db: db}
}

// slotLockKeys returns one key per granule the interval [start,
// start+duration) touches. A zero or negative duration still holds its
// starting granule.
func slotLockKeys(managerID utils.SixID, t models.AppointmentType, start time.Time, duration int) []string {
	start = start.UTC()
	end := start.Add(time.Duration(duration) * time.Minute)
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	var keys []string
	for g := start.Truncate(slotLockGranule); g.Before(end); g = g.Add(slotLockGranule) {
		keys = append(keys, fmt.Sprintf("%s|%s|%s", managerID, t, g.Format(time.RFC3339)))
	}
	return keys
}

// CreateLocked claims every granule lock the interval covers and then
// inserts the appointment. A duplicate key on any lock means a concurrent
// confirmation already holds an overlapping interval; the partial claim is
// rolled back and the caller sees ErrSlotLocked.
func (s *appointmentService) CreateLocked(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	if appt.ID.IsZero() {
		appt.ID = utils.NewSixID()
	}
	appt.Status = models.AppointmentConfirmed
	appt.CreatedAt = time.Now().UTC()

	keys := slotLockKeys(appt.ManagerID, appt.Type, appt.ScheduledTime, appt.Duration)
	locks := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		locks = append(locks, bson.M{
			"lock_key":       key,
			"appointment_id": appt.ID,
			"created_at":     appt.CreatedAt,
		})
	}
	if _, err := s.db.Collection(slotLocksCollection).InsertMany(ctx, locks); err != nil {
		// Ordered insert stops at the first duplicate; drop whatever
		// granules were claimed before it.
		_, _ = s.db.Collection(slotLocksCollection).DeleteMany(ctx, bson.M{"appointment_id": appt.ID})
		if db.IsDuplicateKeyError(err) {
			return nil, ErrSlotLocked
		}
		return nil, fmt.Errorf("failed to lock slot: %w", err)
	}

	if _, err := s.db.Collection(appointmentsCollection).InsertOne(ctx, appt); err != nil {
		// Release the locks so the interval is not stranded.
		_, _ = s.db.Collection(slotLocksCollection).DeleteMany(ctx, bson.M{"appointment_id": appt.ID})
		return nil, fmt.Errorf("failed to insert appointment: %w", err)
	}
	return appt, nil
}

func (s *appointmentService) FindByID(ctx context.Context, appointmentID utils.SixID) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.Collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding appointment %s: %w", appointmentID, err)
	}
	return &appt, nil
}

func (s *appointmentService) List(ctx context.Context, managerID utils.SixID, from, to *time.Time) ([]models.Appointment, error) {
	filter := bson.M{"manager_id": managerID}
	window := bson.M{}
	if from != nil {
		window["$gte"] = *from
	}
	if to != nil {
		window["$lt"] = *to
	}
	if len(window) > 0 {
		filter["scheduled_time"] = window
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	cursor, err := s.db.Collection(appointmentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	var appts []models.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appts, nil
}

// ListForWindow returns every appointment touching [start, end) for the
// manager, regardless of type or status; the slot generator does its own
// filtering.
func (s *appointmentService) ListForWindow(ctx context.Context, managerID utils.SixID, start, end time.Time) ([]models.Appointment, error) {
	return s.List(ctx, managerID, &start, &end)
}

// Cancel marks the appointment cancelled and releases its slot locks,
// which makes the interval bookable again on the very next slot query.
func (s *appointmentService) Cancel(ctx context.Context, appointmentID, managerID utils.SixID) (*models.Appointment, error) {
	filter := bson.M{"_id": appointmentID, "manager_id": managerID, "status": models.AppointmentConfirmed}
	update := bson.M{"$set": bson.M{"status": models.AppointmentCancelled}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appt models.Appointment
	err := s.db.Collection(appointmentsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to cancel appointment %s: %w", appointmentID, err)
	}
	s.releaseLock(ctx, &appt)
	return &appt, nil
}

// CancelForInquiry cancels the inquiry's confirmed appointment, if any.
// Used by the cancel_appointment override.
func (s *appointmentService) CancelForInquiry(ctx context.Context, inquiryID utils.SixID) error {
	filter := bson.M{"inquiry_id": inquiryID, "status": models.AppointmentConfirmed}
	update := bson.M{"$set": bson.M{"status": models.AppointmentCancelled}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var appt models.Appointment
	err := s.db.Collection(appointmentsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil // nothing to cancel
		}
		return fmt.Errorf("failed to cancel appointment for inquiry %s: %w", inquiryID, err)
	}
	s.releaseLock(ctx, &appt)
	return nil
}

// CompleteForInquiry marks the inquiry's confirmed appointment completed.
func (s *appointmentService) CompleteForInquiry(ctx context.Context, inquiryID utils.SixID) error {
	filter := bson.M{"inquiry_id": inquiryID, "status": models.AppointmentConfirmed}
	update := bson.M{"$set": bson.M{"status": models.AppointmentCompleted}}
	res, err := s.db.Collection(appointmentsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to complete appointment for inquiry %s: %w", inquiryID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *appointmentService) releaseLock(ctx context.Context, appt *models.Appointment) {
	if _, err := s.db.Collection(slotLocksCollection).DeleteMany(ctx, bson.M{"appointment_id": appt.ID}); err != nil {
		log.Printf("WARNING: failed to release slot locks for appointment %s: %v", appt.ID, err)
	}
}

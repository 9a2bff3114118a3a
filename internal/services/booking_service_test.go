package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

type bookingFixture struct {
	db         *mongo.Database
	cfg        *config.Config
	booking    IBookingService
	workflow   IWorkflowService
	properties IPropertyService
	schedules  IAvailabilityService
	managerID  utils.SixID
	propertyID utils.SixID
}

// allWeek keeps slots available whatever day the test runs on.
var allWeek = map[string][]models.TimeBlock{
	"monday":    {{StartTime: "09:00", EndTime: "17:00"}},
	"tuesday":   {{StartTime: "09:00", EndTime: "17:00"}},
	"wednesday": {{StartTime: "09:00", EndTime: "17:00"}},
	"thursday":  {{StartTime: "09:00", EndTime: "17:00"}},
	"friday":    {{StartTime: "09:00", EndTime: "17:00"}},
	"saturday":  {{StartTime: "09:00", EndTime: "17:00"}},
	"sunday":    {{StartTime: "09:00", EndTime: "17:00"}},
}

func newBookingFixture(t *testing.T, dbName string) *bookingFixture {
	database := utils.SetupTestDB(t, dbName,
		"inquiries", "workflow_events", "booking_tokens", "properties",
		"availability_schedules", "appointments", "slot_locks",
		"questions", "qualification_criteria")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))

	cfg := &config.Config{
		ScheduleTimezone:    time.UTC,
		SlotOfferCount:      3,
		DefaultSlotDuration: 30,
		BookingTokenTTL:     72 * time.Hour,
	}

	ctx := context.Background()
	questionSvc := NewQuestionService(database)
	criteriaSvc := NewCriteriaService(database, questionSvc)
	appointmentSvc := NewAppointmentService(database)
	workflowSvc := NewWorkflowService(database, questionSvc, criteriaSvc, appointmentSvc, nil)
	availabilitySvc := NewAvailabilityService(database, cfg, appointmentSvc)
	propertySvc := NewPropertyService(database)

	managerID := utils.NewSixID()
	property, err := propertySvc.CreateProperty(ctx, managerID, "12 Oak Street", "12 Oak Street, Springfield", nil)
	require.NoError(t, err)
	_, err = availabilitySvc.UpsertSchedule(ctx, managerID, models.AppointmentTour, allWeek, nil)
	require.NoError(t, err)

	return &bookingFixture{
		db:         database,
		cfg:        cfg,
		booking:    NewBookingService(database, cfg, propertySvc, availabilitySvc, appointmentSvc, workflowSvc, nil),
		workflow:   workflowSvc,
		properties: propertySvc,
		schedules:  availabilitySvc,
		managerID:  managerID,
		propertyID: property.ID,
	}
}

// qualifiedInquiry inserts an inquiry already past qualification.
func (f *bookingFixture) qualifiedInquiry(t *testing.T) *models.Inquiry {
	now := time.Now().UTC()
	inquiry := &models.Inquiry{
		ID:          utils.NewSixID(),
		PropertyID:  f.propertyID,
		TenantEmail: "prospect@example.com",
		Status:      models.StatusQualified,
		SourceType:  models.SourceManual,
		Answers:     map[string]interface{}{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := f.db.Collection("inquiries").InsertOne(context.Background(), inquiry)
	require.NoError(t, err)
	return inquiry
}

func TestBookingService_IssueOffers(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_issue")
	ctx := context.Background()
	inquiry := f.qualifiedInquiry(t)

	tokens, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 0)
	assert.NoError(t, err)
	require.Len(t, tokens, f.cfg.SlotOfferCount)
	for _, token := range tokens {
		assert.Equal(t, inquiry.ID, token.InquiryID)
		assert.Equal(t, int64(1), token.Generation)
		assert.Equal(t, f.cfg.DefaultSlotDuration, token.Slot.Duration)
		assert.False(t, token.Consumed)
		assert.True(t, token.ExpiresAt.After(time.Now()))
	}

	// Offered slots are distinct.
	seen := map[string]bool{}
	for _, token := range tokens {
		key := token.Slot.Date + " " + token.Slot.StartTime
		assert.False(t, seen[key], "duplicate slot %s", key)
		seen[key] = true
	}

	got, err := f.booking.GetToken(ctx, tokens[0].Token)
	assert.NoError(t, err)
	assert.Equal(t, tokens[0].Slot, got.Slot)

	_, err = f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentType("walkthrough"), 0)
	var valErr *apperr.ValidationError
	assert.ErrorAs(t, err, &valErr)

	_, err = f.booking.IssueOffers(ctx, utils.NewSixID(), models.AppointmentTour, 0)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestBookingService_IssueOffersRequiresQualified(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_issue_state")
	ctx := context.Background()

	inquiry := f.qualifiedInquiry(t)
	_, err := f.db.Collection("inquiries").UpdateOne(ctx,
		bson.M{"_id": inquiry.ID},
		bson.M{"$set": bson.M{"status": models.StatusQuestionnaireSent}})
	require.NoError(t, err)

	var stateErr *apperr.StateError
	_, err = f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 0)
	assert.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(models.StatusQuestionnaireSent), stateErr.CurrentStatus)
}

func TestBookingService_ConfirmOnce(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_confirm")
	ctx := context.Background()
	inquiry := f.qualifiedInquiry(t)

	tokens, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 30)
	require.NoError(t, err)

	appt, err := f.booking.Confirm(ctx, tokens[0].Token)
	assert.NoError(t, err)
	require.NotNil(t, appt)
	assert.Equal(t, inquiry.ID, appt.InquiryID)
	assert.Equal(t, f.managerID, appt.ManagerID)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)

	var updated models.Inquiry
	require.NoError(t, f.db.Collection("inquiries").FindOne(ctx, bson.M{"_id": inquiry.ID}).Decode(&updated))
	assert.Equal(t, models.StatusAppointmentScheduled, updated.Status)

	// A duplicate submission of the same token cannot book twice.
	_, err = f.booking.Confirm(ctx, tokens[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenAlreadyConsumed)

	_, err = f.booking.GetToken(ctx, tokens[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenAlreadyConsumed)

	count, err := f.db.Collection("appointments").CountDocuments(ctx, bson.M{"inquiry_id": inquiry.ID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBookingService_StaleGenerationExpires(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_generation")
	ctx := context.Background()
	inquiry := f.qualifiedInquiry(t)

	first, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 30)
	require.NoError(t, err)
	second, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 30)
	require.NoError(t, err)

	// The new batch supersedes the old one.
	_, err = f.booking.GetToken(ctx, first[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	_, err = f.booking.Confirm(ctx, first[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	_, err = f.booking.GetToken(ctx, second[0].Token)
	assert.NoError(t, err)
}

func TestBookingService_TokenExpiry(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_expiry")
	ctx := context.Background()
	inquiry := f.qualifiedInquiry(t)

	tokens, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 30)
	require.NoError(t, err)

	_, err = f.db.Collection("booking_tokens").UpdateOne(ctx,
		bson.M{"_id": tokens[0].Token},
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Hour)}})
	require.NoError(t, err)

	_, err = f.booking.GetToken(ctx, tokens[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	_, err = f.booking.Confirm(ctx, tokens[0].Token)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	_, err = f.booking.GetToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, apperr.ErrTokenNotFound)
}

func TestBookingService_SlotNoLongerOpen(t *testing.T) {
	f := newBookingFixture(t, "testdb_booking_slot_gone")
	ctx := context.Background()
	inquiry := f.qualifiedInquiry(t)

	tokens, err := f.booking.IssueOffers(ctx, inquiry.ID, models.AppointmentTour, 30)
	require.NoError(t, err)

	// The manager clears their availability after the offer went out.
	_, err = f.schedules.UpsertSchedule(ctx, f.managerID, models.AppointmentTour, map[string][]models.TimeBlock{}, nil)
	require.NoError(t, err)

	_, err = f.booking.Confirm(ctx, tokens[0].Token)
	assert.ErrorIs(t, err, apperr.ErrSlotNoLongerOpen)

	// The failed consume spends the token.
	var bt models.BookingToken
	require.NoError(t, f.db.Collection("booking_tokens").FindOne(ctx, bson.M{"_id": tokens[0].Token}).Decode(&bt))
	assert.True(t, bt.Consumed)
	assert.True(t, bt.ConsumedFailed)

	count, err := f.db.Collection("appointments").CountDocuments(ctx, bson.M{"inquiry_id": inquiry.ID})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

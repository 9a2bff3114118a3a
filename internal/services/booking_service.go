package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/scheduling"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IBookingService issues and consumes single-use booking tokens. Issuing a
// new batch supersedes all earlier unconsumed tokens for the inquiry (the
// inquiry's generation counter moves on), so only the latest offer email
// can book.
type IBookingService interface {
	IssueOffers(ctx context.Context, inquiryID utils.SixID, appointmentType models.AppointmentType, duration int) ([]models.BookingToken, error)
	GetToken(ctx context.Context, token string) (*models.BookingToken, error)
	Confirm(ctx context.Context, token string) (*models.Appointment, error)
}

const (
	bookingTokensCollection = "booking_tokens"

	// offerScanDays bounds how far ahead a slot-offer batch looks.
	offerScanDays = 14
)

type bookingService struct {
	db                  *mongo.Database
	cfg                 *config.Config
	propertyService     IPropertyService
	availabilityService IAvailabilityService
	appointmentService  IAppointmentService
	workflowService     IWorkflowService
	notifier            Notifier
}

// NewBookingService creates a new booking service.
func NewBookingService(db *mongo.Database, cfg *config.Config, propertyService IPropertyService, availabilityService IAvailabilityService, appointmentService IAppointmentService, workflowService IWorkflowService, notifier Notifier) IBookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &bookingService{
		db:                  db,
		cfg:                 cfg,
		propertyService:     propertyService,
		availabilityService: availabilityService,
		appointmentService:  appointmentService,
		workflowService:     workflowService,
		notifier:            notifier,
	}
}

// IssueOffers mints one token per open slot, up to the configured batch
// size, and bumps the inquiry's token generation so earlier batches stop
// confirming.
func (s *bookingService) IssueOffers(ctx context.Context, inquiryID utils.SixID, appointmentType models.AppointmentType, duration int) ([]models.BookingToken, error) {
	if !appointmentType.Valid() {
		return nil, apperr.NewValidation("unknown appointment type %q", appointmentType)
	}
	if duration <= 0 {
		duration = s.cfg.DefaultSlotDuration
	}

	var inquiry models.Inquiry
	if err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": inquiryID}).Decode(&inquiry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding inquiry %s: %w", inquiryID, err)
	}
	if inquiry.Status != models.StatusQualified {
		return nil, &apperr.StateError{CurrentStatus: string(inquiry.Status), Attempted: "issue_offers"}
	}

	property, err := s.propertyService.FindPropertyByID(ctx, inquiry.PropertyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	loc := s.cfg.ScheduleTimezone
	var offered []models.OfferedSlot
	for dayOffset := 0; dayOffset < offerScanDays && len(offered) < s.cfg.SlotOfferCount; dayOffset++ {
		date := now.In(loc).AddDate(0, 0, dayOffset).Format(scheduling.DateLayout)
		slots, err := s.availabilityService.SlotsForDate(ctx, property.ManagerID, date, appointmentType, duration, now)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if len(offered) >= s.cfg.SlotOfferCount {
				break
			}
			offered = append(offered, models.OfferedSlot{
				Date:            date,
				StartTime:       slot.Format("15:04"),
				AppointmentType: appointmentType,
				Duration:        duration,
			})
		}
	}
	if len(offered) == 0 {
		return nil, apperr.NewValidation("no open slots in the next %d days", offerScanDays)
	}

	// Bump the generation first: from this point earlier batches are dead
	// even if the token insert below fails halfway.
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var bumped models.Inquiry
	err = s.db.Collection(inquiriesCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": inquiry.ID}, bson.M{"$inc": bson.M{"token_generation": 1}}, opts).
		Decode(&bumped)
	if err != nil {
		return nil, fmt.Errorf("failed to advance token generation for inquiry %s: %w", inquiry.ID, err)
	}

	issuedAt := time.Now().UTC()
	tokens := make([]models.BookingToken, 0, len(offered))
	docs := make([]interface{}, 0, len(offered))
	for _, slot := range offered {
		token := models.BookingToken{
			Token:      uuid.NewString(),
			InquiryID:  inquiry.ID,
			Generation: bumped.TokenGeneration,
			Slot:       slot,
			ExpiresAt:  issuedAt.Add(s.cfg.BookingTokenTTL),
			CreatedAt:  issuedAt,
		}
		tokens = append(tokens, token)
		docs = append(docs, token)
	}
	if _, err := s.db.Collection(bookingTokensCollection).InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to insert booking tokens for inquiry %s: %w", inquiry.ID, err)
	}

	s.notifier.OffersIssued(ctx, &bumped, tokens)
	return tokens, nil
}

// GetToken validates a token for display on the public booking page.
func (s *bookingService) GetToken(ctx context.Context, token string) (*models.BookingToken, error) {
	bt, inquiry, err := s.loadToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if bt.Consumed {
		return nil, apperr.ErrTokenAlreadyConsumed
	}
	if bt.Expired(time.Now()) || bt.Generation != inquiry.TokenGeneration {
		return nil, apperr.ErrTokenExpired
	}
	return bt, nil
}

// Confirm consumes the token and books the slot. The consume is a
// conditional single-document update, so a duplicate submission of the
// same token observes TokenAlreadyConsumed and can never create a second
// appointment. The slot itself is claimed through the appointment
// service's unique slot lock.
func (s *bookingService) Confirm(ctx context.Context, token string) (*models.Appointment, error) {
	bt, inquiry, err := s.loadToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if bt.Consumed {
		return nil, apperr.ErrTokenAlreadyConsumed
	}
	now := time.Now()
	if bt.Expired(now) || bt.Generation != inquiry.TokenGeneration {
		return nil, apperr.ErrTokenExpired
	}

	res, err := s.db.Collection(bookingTokensCollection).UpdateOne(ctx,
		bson.M{"_id": bt.Token, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, apperr.ErrTokenAlreadyConsumed
	}

	property, err := s.propertyService.FindPropertyByID(ctx, inquiry.PropertyID)
	if err != nil {
		return nil, err
	}

	// Re-run slot generation for the token's exact slot: the offer may be
	// days old and the interval taken or the schedule changed since.
	slots, err := s.availabilityService.SlotsForDate(ctx, property.ManagerID, bt.Slot.Date, bt.Slot.AppointmentType, bt.Slot.Duration, now)
	if err != nil {
		return nil, err
	}
	if !containsStart(slots, bt.Slot.StartTime) {
		s.markConsumedFailed(ctx, bt.Token)
		return nil, apperr.ErrSlotNoLongerOpen
	}

	scheduledTime, err := time.ParseInLocation(
		scheduling.DateLayout+" 15:04", bt.Slot.Date+" "+bt.Slot.StartTime, s.cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("malformed slot on token %s: %w", bt.Token, err)
	}

	appt, err := s.appointmentService.CreateLocked(ctx, &models.Appointment{
		InquiryID:     inquiry.ID,
		ManagerID:     property.ManagerID,
		Type:          bt.Slot.AppointmentType,
		ScheduledTime: scheduledTime,
		Duration:      bt.Slot.Duration,
	})
	if err != nil {
		if errors.Is(err, ErrSlotLocked) {
			// Lost the race for the interval. The token is spent; offer a
			// fresh batch once rather than retrying the same slot.
			s.markConsumedFailed(ctx, bt.Token)
			if _, offerErr := s.IssueOffers(ctx, inquiry.ID, bt.Slot.AppointmentType, bt.Slot.Duration); offerErr != nil {
				log.Printf("Failed to re-offer slots for inquiry %s after conflict: %v", inquiry.ID, offerErr)
			}
			return nil, fmt.Errorf("%w: slot %s %s was booked concurrently", apperr.ErrConcurrencyConflict, bt.Slot.Date, bt.Slot.StartTime)
		}
		return nil, err
	}

	if _, err := s.workflowService.Transition(ctx, inquiry.ID, models.StatusAppointmentScheduled, models.ActorSystem); err != nil {
		// Unwind the booking so the slot is not held by a dangling
		// appointment.
		if _, cancelErr := s.appointmentService.Cancel(ctx, appt.ID, appt.ManagerID); cancelErr != nil {
			log.Printf("Failed to unwind appointment %s: %v", appt.ID, cancelErr)
		}
		return nil, err
	}
	return appt, nil
}

func (s *bookingService) loadToken(ctx context.Context, token string) (*models.BookingToken, *models.Inquiry, error) {
	var bt models.BookingToken
	err := s.db.Collection(bookingTokensCollection).FindOne(ctx, bson.M{"_id": token}).Decode(&bt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, apperr.ErrTokenNotFound
		}
		return nil, nil, fmt.Errorf("error finding token: %w", err)
	}

	var inquiry models.Inquiry
	if err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": bt.InquiryID}).Decode(&inquiry); err != nil {
		return nil, nil, fmt.Errorf("error finding inquiry for token: %w", err)
	}
	return &bt, &inquiry, nil
}

func (s *bookingService) markConsumedFailed(ctx context.Context, token string) {
	_, err := s.db.Collection(bookingTokensCollection).UpdateOne(ctx,
		bson.M{"_id": token},
		bson.M{"$set": bson.M{"consumed_failed": true}})
	if err != nil {
		log.Printf("Failed to mark token %s consumed-failed: %v", token, err)
	}
}

func containsStart(slots []time.Time, start string) bool {
	for _, s := range slots {
		if s.Format("15:04") == start {
			return true
		}
	}
	return false
}

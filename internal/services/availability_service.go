package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/scheduling"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IAvailabilityService stores per-manager, per-type weekly availability and
// answers slot queries. One schedule document per (manager, scheduleType).
type IAvailabilityService interface {
	UpsertSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType, recurringWeekly map[string][]models.TimeBlock, blockedDates []models.DateRange) (*models.AvailabilitySchedule, error)
	GetSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType) (*models.AvailabilitySchedule, error)
	SlotsForDate(ctx context.Context, managerID utils.SixID, date string, scheduleType models.AppointmentType, duration int, now time.Time) ([]time.Time, error)
}

const schedulesCollection = "availability_schedules"

type availabilityService struct {
	db                 *mongo.Database
	cfg                *config.Config
	appointmentService IAppointmentService
}

// NewAvailabilityService creates a new availability service.
func NewAvailabilityService(db *mongo.Database, cfg *config.Config, appointmentService IAppointmentService) IAvailabilityService {
	return &availabilityService{db: db, cfg: cfg, appointmentService: appointmentService}
}

// UpsertSchedule validates and saves the weekly pattern. Overlapping or
// inverted blocks are rejected before persistence.
func (s *availabilityService) UpsertSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType, recurringWeekly map[string][]models.TimeBlock, blockedDates []models.DateRange) (*models.AvailabilitySchedule, error) {
	if !scheduleType.Valid() {
		return nil, apperr.NewValidation("unknown schedule type %q", scheduleType)
	}
	if err := validateWeekly(recurringWeekly); err != nil {
		return nil, err
	}
	for _, r := range blockedDates {
		if err := validateDateRange(r); err != nil {
			return nil, err
		}
	}

	filter := bson.M{"manager_id": managerID, "schedule_type": scheduleType}
	update := bson.M{
		"$set": bson.M{
			"recurring_weekly": recurringWeekly,
			"blocked_dates":    blockedDates,
			"updated_at":       time.Now().UTC(),
		},
		"$setOnInsert": bson.M{"_id": utils.NewSixID()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var schedule models.AvailabilitySchedule
	if err := s.db.Collection(schedulesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&schedule); err != nil {
		return nil, fmt.Errorf("failed to upsert schedule for manager %s: %w", managerID, err)
	}
	return &schedule, nil
}

func (s *availabilityService) GetSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType) (*models.AvailabilitySchedule, error) {
	var schedule models.AvailabilitySchedule
	filter := bson.M{"manager_id": managerID, "schedule_type": scheduleType}
	err := s.db.Collection(schedulesCollection).FindOne(ctx, filter).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding schedule for manager %s: %w", managerID, err)
	}
	return &schedule, nil
}

// SlotsForDate loads the schedule and the day's appointments and runs the
// pure generator over them. A non-positive duration falls back to the
// configured default rather than yielding a silent empty grid.
func (s *availabilityService) SlotsForDate(ctx context.Context, managerID utils.SixID, date string, scheduleType models.AppointmentType, duration int, now time.Time) ([]time.Time, error) {
	if duration <= 0 {
		duration = s.cfg.DefaultSlotDuration
	}

	schedule, err := s.GetSchedule(ctx, managerID, scheduleType)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	loc := s.cfg.ScheduleTimezone
	day, err := time.ParseInLocation(scheduling.DateLayout, date, loc)
	if err != nil {
		return nil, apperr.NewValidation("invalid date %q", date)
	}
	appointments, err := s.appointmentService.ListForWindow(ctx, managerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	slots, _ := scheduling.Generate(scheduling.Request{
		Schedule:     schedule,
		Appointments: appointments,
		Date:         date,
		Type:         scheduleType,
		Duration:     duration,
		Now:          now,
		Location:     loc,
	})
	return slots, nil
}

// validateWeekly checks weekday keys, block boundaries and within-day
// overlap.
func validateWeekly(weekly map[string][]models.TimeBlock) error {
	for weekday, blocks := range weekly {
		if !models.ValidWeekdayKey(weekday) {
			return apperr.NewValidation("unknown weekday %q", weekday)
		}

		type span struct{ start, end int }
		spans := make([]span, 0, len(blocks))
		for _, block := range blocks {
			start, end, err := block.Minutes()
			if err != nil {
				return apperr.NewValidation("%s: %s", weekday, err.Error())
			}
			if start >= end {
				return apperr.NewValidation("%s: block %s-%s must start before it ends", weekday, block.StartTime, block.EndTime)
			}
			spans = append(spans, span{start, end})
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				return apperr.NewValidation("%s: time blocks overlap", weekday)
			}
		}
	}
	return nil
}

func validateDateRange(r models.DateRange) error {
	start, err := time.Parse(scheduling.DateLayout, r.StartDate)
	if err != nil {
		return apperr.NewValidation("invalid blocked date %q", r.StartDate)
	}
	end, err := time.Parse(scheduling.DateLayout, r.EndDate)
	if err != nil {
		return apperr.NewValidation("invalid blocked date %q", r.EndDate)
	}
	if end.Before(start) {
		return apperr.NewValidation("blocked range %s to %s is inverted", r.StartDate, r.EndDate)
	}
	return nil
}

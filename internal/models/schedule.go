package models

import (
	"fmt"
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// AppointmentType distinguishes the two bookable meeting kinds. Each type
// has its own availability schedule.
type AppointmentType string

const (
	AppointmentVideoCall AppointmentType = "video_call"
	AppointmentTour      AppointmentType = "tour"
)

// Valid reports whether t is a known appointment type.
func (t AppointmentType) Valid() bool {
	return t == AppointmentVideoCall || t == AppointmentTour
}

// TimeBlock is a local wall-clock interval within one weekday, "HH:MM"
// with start strictly before end.
type TimeBlock struct {
	StartTime string `bson:"start_time" json:"start_time"`
	EndTime   string `bson:"end_time" json:"end_time"`
}

// ParseWallClock converts "HH:MM" to minutes since midnight.
func ParseWallClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Minutes returns the block boundaries as minutes since midnight.
func (b TimeBlock) Minutes() (start, end int, err error) {
	if start, err = ParseWallClock(b.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = ParseWallClock(b.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// DateRange is an inclusive range of calendar dates, "2006-01-02".
type DateRange struct {
	StartDate string `bson:"start_date" json:"start_date"`
	EndDate   string `bson:"end_date" json:"end_date"`
}

// Contains reports whether date (a "2006-01-02" string) falls inside the
// range. String comparison is safe for this date format.
func (r DateRange) Contains(date string) bool {
	return r.StartDate <= date && date <= r.EndDate
}

// WeekdayKey maps a time.Weekday onto the schedule's recurringWeekly keys.
func WeekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

var weekdayKeys = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ValidWeekdayKey reports whether s is a recognized weekday key.
func ValidWeekdayKey(s string) bool {
	for _, k := range weekdayKeys {
		if k == s {
			return true
		}
	}
	return false
}

// AvailabilitySchedule is one manager's recurring weekly availability for
// one appointment type, plus dates on which no slots are offered at all.
type AvailabilitySchedule struct {
	ID              utils.SixID            `bson:"_id,omitempty" json:"id,omitempty"`
	ManagerID       utils.SixID            `bson:"manager_id" json:"manager_id"`
	ScheduleType    AppointmentType        `bson:"schedule_type" json:"schedule_type"`
	RecurringWeekly map[string][]TimeBlock `bson:"recurring_weekly" json:"recurring_weekly"`
	BlockedDates    []DateRange            `bson:"blocked_dates,omitempty" json:"blocked_dates,omitempty"`
	UpdatedAt       time.Time              `bson:"updated_at" json:"updated_at"`
}

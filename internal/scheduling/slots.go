// Package scheduling turns a recurring weekly availability pattern plus
// existing bookings into concrete, collision-free appointment start times.
// Generation is a pure function of its request: the same inputs always
// yield the same slots, which lets the booking flow run it once to offer
// slots and again to re-validate one at confirmation time.
package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
)

// DateLayout is the calendar-date format used throughout the scheduler.
const DateLayout = "2006-01-02"

// Request carries everything slot generation depends on. Now and Location
// are explicit inputs so generation stays deterministic and testable.
type Request struct {
	Schedule     *models.AvailabilitySchedule
	Appointments []models.Appointment
	Date         string // "2006-01-02"
	Type         models.AppointmentType
	Duration     int // minutes
	Now          time.Time
	Location     *time.Location
}

// Generate returns the open start times for the requested date, ascending.
// Bad input data never panics; it produces an empty result plus
// diagnostics.
func Generate(req Request) ([]time.Time, []string) {
	var diags []string

	if req.Duration <= 0 {
		return nil, append(diags, fmt.Sprintf("non-positive duration %d", req.Duration))
	}
	if req.Schedule == nil {
		return nil, append(diags, "no availability schedule configured")
	}
	if req.Schedule.ScheduleType != req.Type {
		return nil, append(diags, fmt.Sprintf("schedule is for %s, not %s", req.Schedule.ScheduleType, req.Type))
	}

	loc := req.Location
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, req.Date, loc)
	if err != nil {
		return nil, append(diags, fmt.Sprintf("invalid date %q", req.Date))
	}

	for _, blocked := range req.Schedule.BlockedDates {
		if blocked.Contains(req.Date) {
			return nil, diags
		}
	}

	blocks := req.Schedule.RecurringWeekly[models.WeekdayKey(day.Weekday())]
	if len(blocks) == 0 {
		return nil, diags
	}

	// Candidate starts step through each block by the slot duration; a
	// candidate must fit entirely within its block.
	var candidates []time.Time
	for _, block := range blocks {
		start, end, err := block.Minutes()
		if err != nil {
			diags = append(diags, err.Error())
			continue
		}
		for m := start; m+req.Duration <= end; m += req.Duration {
			candidates = append(candidates, day.Add(time.Duration(m)*time.Minute))
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	step := time.Duration(req.Duration) * time.Minute
	today := req.Now.In(loc).Format(DateLayout) == req.Date

	slots := candidates[:0]
	for _, cand := range candidates {
		if today && cand.Before(req.Now) {
			continue
		}
		if overlapsAppointment(cand, cand.Add(step), req.Type, req.Appointments) {
			continue
		}
		slots = append(slots, cand)
	}
	return slots, diags
}

// SlotOpen reports whether one specific slot is still generatable. It is
// the confirmation-time re-validation of an offered slot.
func SlotOpen(req Request, start string) bool {
	slots, _ := Generate(req)
	for _, s := range slots {
		if s.Format("15:04") == start {
			return true
		}
	}
	return false
}

// overlapsAppointment applies the half-open interval test against every
// non-cancelled appointment of the same type.
func overlapsAppointment(start, end time.Time, t models.AppointmentType, appointments []models.Appointment) bool {
	for i := range appointments {
		appt := &appointments[i]
		if appt.Type != t || appt.Status == models.AppointmentCancelled {
			continue
		}
		if appt.ScheduledTime.Before(end) && start.Before(appt.End()) {
			return true
		}
	}
	return false
}

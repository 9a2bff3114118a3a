package models

import (
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// AppointmentStatus is the lifecycle state of a booked appointment.
type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Appointment is a confirmed booking created by token confirmation.
// Cancelling an appointment frees its interval for slot generation on the
// very next query; there is no occupied-state cache beyond this record.
type Appointment struct {
	ID            utils.SixID       `bson:"_id,omitempty" json:"id,omitempty"`
	InquiryID     utils.SixID       `bson:"inquiry_id" json:"inquiry_id"`
	ManagerID     utils.SixID       `bson:"manager_id" json:"manager_id"`
	Type          AppointmentType   `bson:"type" json:"type"`
	ScheduledTime time.Time         `bson:"scheduled_time" json:"scheduled_time"`
	Duration      int               `bson:"duration" json:"duration"` // minutes
	Status        AppointmentStatus `bson:"status" json:"status"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
}

// End returns the exclusive end of the appointment interval.
func (a *Appointment) End() time.Time {
	return a.ScheduledTime.Add(time.Duration(a.Duration) * time.Minute)
}

package models

import (
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// OfferedSlot pins a booking token to one concrete slot.
type OfferedSlot struct {
	Date            string          `bson:"date" json:"date"` // "2006-01-02"
	StartTime       string          `bson:"start_time" json:"start_time"`
	AppointmentType AppointmentType `bson:"appointment_type" json:"appointment_type"`
	Duration        int             `bson:"duration" json:"duration"` // minutes
}

// BookingToken is a single-use credential binding a prospective tenant to
// one offered slot. Tokens from a superseded offer batch (older Generation
// than the inquiry's current one) are rejected at confirmation.
type BookingToken struct {
	Token          string      `bson:"_id" json:"token"`
	InquiryID      utils.SixID `bson:"inquiry_id" json:"inquiry_id"`
	Generation     int64       `bson:"generation" json:"-"`
	Slot           OfferedSlot `bson:"slot" json:"slot"`
	ExpiresAt      time.Time   `bson:"expires_at" json:"expires_at"`
	Consumed       bool        `bson:"consumed" json:"consumed"`
	ConsumedFailed bool        `bson:"consumed_failed" json:"-"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its TTL at the given time.
func (t *BookingToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

package models

import (
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// Property is a rental unit managed through the console. Inquiries,
// questions and criteria all hang off a property.
type Property struct {
	ID        utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
	ManagerID utils.SixID `bson:"manager_id" json:"manager_id"`
	Name      string      `bson:"name" json:"name"`
	Address   string      `bson:"address" json:"address"`
	Rent      *Money      `bson:"rent,omitempty" json:"rent,omitempty"`
	Photos    []string    `bson:"photos" json:"photos"` // S3 keys
	Archived  bool        `bson:"archived" json:"archived"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updated_at"`
	Deleted   bool        `bson:"deleted" json:"-"`
}

// Money is a monetary amount with its currency.
type Money struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

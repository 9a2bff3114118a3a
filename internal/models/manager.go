package models

import (
	"time"
)

// Manager is a property manager account with console access.
type Manager struct {
	Base         `bson:",inline"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	Name         string    `bson:"name" json:"name"`
	IsAdmin      bool      `bson:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	Deleted      bool      `bson:"deleted" json:"-"`
}

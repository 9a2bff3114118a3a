package models

import (
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// Base carries the identifier shared by every persisted document.
type Base struct {
	ID utils.SixID `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.ID = utils.NewSixID()
	}
}

func NewBase() Base {
	return Base{ID: utils.NewSixID()}
}

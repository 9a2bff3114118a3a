package models

import (
	"fmt"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// ResponseType is the closed set of answer kinds a pre-qualification
// question can take. Switches over it must be exhaustive so adding a type
// is caught everywhere it matters.
type ResponseType string

const (
	ResponseTypeText           ResponseType = "text"
	ResponseTypeNumber         ResponseType = "number"
	ResponseTypeBoolean        ResponseType = "boolean"
	ResponseTypeMultipleChoice ResponseType = "multiple_choice"
)

// Valid reports whether t is one of the known response types.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseTypeText, ResponseTypeNumber, ResponseTypeBoolean, ResponseTypeMultipleChoice:
		return true
	}
	return false
}

// Question is one pre-qualification question configured on a property.
// Order is a dense 0-based sequence within the property; the question
// service renumbers on reorder and delete.
type Question struct {
	ID           utils.SixID  `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID   utils.SixID  `bson:"property_id" json:"property_id"`
	Text         string       `bson:"text" json:"text"`
	ResponseType ResponseType `bson:"response_type" json:"response_type"`
	Options      []string     `bson:"options,omitempty" json:"options,omitempty"`
	Order        int          `bson:"order" json:"order"`
	Deleted      bool         `bson:"deleted" json:"-"`
}

// Validate checks the question's internal consistency.
func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	switch q.ResponseType {
	case ResponseTypeMultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("multiple_choice question requires options")
		}
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if opt == "" {
				return fmt.Errorf("multiple_choice options must be non-empty")
			}
			if seen[opt] {
				return fmt.Errorf("duplicate option %q", opt)
			}
			seen[opt] = true
		}
	case ResponseTypeText, ResponseTypeNumber, ResponseTypeBoolean:
		if len(q.Options) > 0 {
			return fmt.Errorf("options are only valid for multiple_choice questions")
		}
	default:
		return fmt.Errorf("unknown response type %q", q.ResponseType)
	}
	return nil
}

// HasOption reports whether v is one of the question's options.
func (q *Question) HasOption(v string) bool {
	for _, opt := range q.Options {
		if opt == v {
			return true
		}
	}
	return false
}

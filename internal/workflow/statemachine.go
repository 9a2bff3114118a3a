// Package workflow defines the inquiry lifecycle as a pure transition
// table. Persistence, event logging and side effects live in the workflow
// service; this package only answers "is this transition legal".
package workflow

import (
	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
)

// transitions lists the automatic (non-override) edges of the lifecycle.
var transitions = map[models.InquiryStatus][]models.InquiryStatus{
	models.StatusNew:                    {models.StatusQuestionnaireSent},
	models.StatusQuestionnaireSent:      {models.StatusQuestionnaireCompleted},
	models.StatusQuestionnaireCompleted: {models.StatusPreQualifying},
	models.StatusPreQualifying:          {models.StatusQualified, models.StatusDisqualified},
	models.StatusQualified:              {models.StatusAppointmentScheduled},
	models.StatusAppointmentScheduled:   {models.StatusAppointmentCompleted},
}

// Terminal reports whether no further transitions leave s. Disqualified is
// deliberately not terminal here: the manual qualify override leaves it.
func Terminal(s models.InquiryStatus) bool {
	return s == models.StatusAppointmentCompleted || s == models.StatusCancelled
}

// CanTransition reports whether from → to is a legal automatic transition.
// Cancellation is reachable from every non-terminal state.
func CanTransition(from, to models.InquiryStatus) bool {
	if to == models.StatusCancelled {
		return !Terminal(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OverrideType is a manager-initiated transition that bypasses automatic
// gating.
type OverrideType string

const (
	OverrideQualify           OverrideType = "qualify"
	OverrideDisqualify        OverrideType = "disqualify"
	OverrideCancelAppointment OverrideType = "cancel_appointment"
)

// Valid reports whether o names a known override.
func (o OverrideType) Valid() bool {
	switch o {
	case OverrideQualify, OverrideDisqualify, OverrideCancelAppointment:
		return true
	}
	return false
}

// overrideSources lists the statuses each override may be applied from.
// Applying an override when the inquiry is already in the target status is
// an idempotent no-op; anything else is a StateError.
var overrideSources = map[OverrideType][]models.InquiryStatus{
	OverrideQualify:           {models.StatusDisqualified},
	OverrideDisqualify:        {models.StatusQualified, models.StatusPreQualifying},
	OverrideCancelAppointment: {models.StatusAppointmentScheduled},
}

// overrideTargets maps each override onto the status it forces.
var overrideTargets = map[OverrideType]models.InquiryStatus{
	OverrideQualify:           models.StatusQualified,
	OverrideDisqualify:        models.StatusDisqualified,
	OverrideCancelAppointment: models.StatusCancelled,
}

// ApplyOverride resolves an override against the current status. It
// returns the target status and whether the override is a no-op. An
// override attempted from a status where it is not defined returns a
// StateError echoing the current status.
func ApplyOverride(current models.InquiryStatus, o OverrideType) (target models.InquiryStatus, noop bool, err error) {
	if !o.Valid() {
		return "", false, &apperr.StateError{CurrentStatus: string(current), Attempted: string(o)}
	}
	target = overrideTargets[o]
	if current == target {
		return target, true, nil
	}
	for _, from := range overrideSources[o] {
		if current == from {
			return target, false, nil
		}
	}
	return "", false, &apperr.StateError{CurrentStatus: string(current), Attempted: string(o)}
}

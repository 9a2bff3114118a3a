package models

import (
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// CriteriaOperator is a comparison applied to one questionnaire answer.
type CriteriaOperator string

const (
	OperatorEquals      CriteriaOperator = "equals"
	OperatorGreaterThan CriteriaOperator = "greater_than"
	OperatorLessThan    CriteriaOperator = "less_than"
	OperatorContains    CriteriaOperator = "contains"
)

// allowedOperators gates which operators apply to which response type.
var allowedOperators = map[ResponseType][]CriteriaOperator{
	ResponseTypeNumber:         {OperatorEquals, OperatorGreaterThan, OperatorLessThan},
	ResponseTypeText:           {OperatorEquals, OperatorContains},
	ResponseTypeBoolean:        {OperatorEquals},
	ResponseTypeMultipleChoice: {OperatorEquals},
}

// OperatorAllowedFor reports whether op is valid for questions of type t.
func OperatorAllowedFor(t ResponseType, op CriteriaOperator) bool {
	for _, allowed := range allowedOperators[t] {
		if allowed == op {
			return true
		}
	}
	return false
}

// QualificationCriterion is one automated pass/fail rule over the answer to
// a single question. ExpectedValue's dynamic type must match the referenced
// question's response type: float64 for number, bool for boolean, string
// for text and multiple_choice. The criteria service enforces this at save
// time; the evaluator re-checks it and fails closed on a mismatch.
type QualificationCriterion struct {
	ID            utils.SixID      `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID    utils.SixID      `bson:"property_id" json:"property_id"`
	QuestionID    utils.SixID      `bson:"question_id" json:"question_id"`
	Operator      CriteriaOperator `bson:"operator" json:"operator"`
	ExpectedValue interface{}      `bson:"expected_value" json:"expected_value"`
	Deleted       bool             `bson:"deleted" json:"-"`
}

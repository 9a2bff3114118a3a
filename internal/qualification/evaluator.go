// Package qualification evaluates questionnaire answers against a
// property's qualification criteria. Evaluation is pure and deterministic:
// no I/O, no side effects, and malformed input yields a failed verdict with
// a diagnostic instead of a panic.
package qualification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
)

// Verdict is the outcome of evaluating one inquiry's answers.
// FailedCriteria preserves the input order of the criteria so the console
// can explain a rejection criterion by criterion.
type Verdict struct {
	Qualified      bool
	FailedCriteria []models.QualificationCriterion
	Diagnostics    []string
}

// Evaluate applies every criterion to the answers, keyed by question ID
// string. The verdict is conjunctive: qualified iff all criteria pass. A
// criterion whose answer is missing fails closed; it is never skipped.
func Evaluate(answers map[string]interface{}, criteria []models.QualificationCriterion, questions map[string]models.Question) Verdict {
	v := Verdict{Qualified: true}

	for _, crit := range criteria {
		qid := crit.QuestionID.String()
		question, ok := questions[qid]
		if !ok {
			v.fail(crit, fmt.Sprintf("criterion %s references unknown question %s", crit.ID, qid))
			continue
		}

		answer, ok := answers[qid]
		if !ok || answer == nil {
			v.fail(crit, fmt.Sprintf("no answer for question %s", qid))
			continue
		}

		pass, diag := applyCriterion(question, crit, answer)
		if diag != "" {
			v.Diagnostics = append(v.Diagnostics, diag)
		}
		if !pass {
			v.Qualified = false
			v.FailedCriteria = append(v.FailedCriteria, crit)
		}
	}

	return v
}

func (v *Verdict) fail(crit models.QualificationCriterion, diag string) {
	v.Qualified = false
	v.FailedCriteria = append(v.FailedCriteria, crit)
	v.Diagnostics = append(v.Diagnostics, diag)
}

// applyCriterion evaluates a single criterion. The switch over the
// question's response type is exhaustive over the closed variant set.
func applyCriterion(q models.Question, crit models.QualificationCriterion, answer interface{}) (pass bool, diag string) {
	switch q.ResponseType {
	case models.ResponseTypeNumber:
		return applyNumber(q, crit, answer)
	case models.ResponseTypeBoolean:
		return applyBoolean(q, crit, answer)
	case models.ResponseTypeText:
		return applyText(q, crit, answer)
	case models.ResponseTypeMultipleChoice:
		return applyMultipleChoice(q, crit, answer)
	default:
		return false, fmt.Sprintf("question %s has unknown response type %q", q.ID, q.ResponseType)
	}
}

func applyNumber(q models.Question, crit models.QualificationCriterion, answer interface{}) (bool, string) {
	got, ok := toNumber(answer)
	if !ok {
		return false, fmt.Sprintf("answer to question %s is not numeric", q.ID)
	}
	want, ok := toNumber(crit.ExpectedValue)
	if !ok {
		return false, fmt.Sprintf("criterion %s expected value is not numeric", crit.ID)
	}

	switch crit.Operator {
	case models.OperatorEquals:
		return got == want, ""
	case models.OperatorGreaterThan:
		return got > want, ""
	case models.OperatorLessThan:
		return got < want, ""
	default:
		return false, fmt.Sprintf("operator %q is not valid for number question %s", crit.Operator, q.ID)
	}
}

func applyBoolean(q models.Question, crit models.QualificationCriterion, answer interface{}) (bool, string) {
	got, ok := toBool(answer)
	if !ok {
		return false, fmt.Sprintf("answer to question %s is not boolean", q.ID)
	}
	want, ok := toBool(crit.ExpectedValue)
	if !ok {
		return false, fmt.Sprintf("criterion %s expected value is not boolean", crit.ID)
	}
	if crit.Operator != models.OperatorEquals {
		return false, fmt.Sprintf("operator %q is not valid for boolean question %s", crit.Operator, q.ID)
	}
	return got == want, ""
}

func applyText(q models.Question, crit models.QualificationCriterion, answer interface{}) (bool, string) {
	got, ok := toString(answer)
	if !ok {
		return false, fmt.Sprintf("answer to question %s is not text", q.ID)
	}
	want, ok := toString(crit.ExpectedValue)
	if !ok {
		return false, fmt.Sprintf("criterion %s expected value is not text", crit.ID)
	}

	switch crit.Operator {
	case models.OperatorEquals:
		// Case-sensitive by contract; "contains" is the lenient operator.
		return got == want, ""
	case models.OperatorContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want)), ""
	default:
		return false, fmt.Sprintf("operator %q is not valid for text question %s", crit.Operator, q.ID)
	}
}

func applyMultipleChoice(q models.Question, crit models.QualificationCriterion, answer interface{}) (bool, string) {
	got, ok := toString(answer)
	if !ok {
		return false, fmt.Sprintf("answer to question %s is not a choice string", q.ID)
	}
	want, ok := toString(crit.ExpectedValue)
	if !ok {
		return false, fmt.Sprintf("criterion %s expected value is not a choice string", crit.ID)
	}
	if crit.Operator != models.OperatorEquals {
		return false, fmt.Sprintf("operator %q is not valid for multiple_choice question %s", crit.Operator, q.ID)
	}
	if !q.HasOption(got) {
		return false, fmt.Sprintf("answer %q is not an option of question %s", got, q.ID)
	}
	return got == want, ""
}

// toNumber coerces the loosely typed values JSON and BSON decoding produce.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

func toString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// ICriteriaService defines qualification criteria operations. All type
// gating happens here, at save time: a criterion that reaches the
// evaluator is already known to fit its question.
type ICriteriaService interface {
	CreateCriterion(ctx context.Context, propertyID, questionID utils.SixID, operator models.CriteriaOperator, expectedValue interface{}) (*models.QualificationCriterion, error)
	UpdateCriterion(ctx context.Context, propertyID, criterionID utils.SixID, operator models.CriteriaOperator, expectedValue interface{}) (*models.QualificationCriterion, error)
	DeleteCriterion(ctx context.Context, propertyID, criterionID utils.SixID) error
	ListCriteria(ctx context.Context, propertyID utils.SixID) ([]models.QualificationCriterion, error)
}

const criteriaCollection = "qualification_criteria"

type criteriaService struct {
	db              *mongo.Database
	questionService IQuestionService
}

// NewCriteriaService creates a new criteria service.
func NewCriteriaService(db *mongo.Database, questionService IQuestionService) ICriteriaService {
	return &criteriaService{db: db, questionService: questionService}
}

func (s *criteriaService) CreateCriterion(ctx context.Context, propertyID, questionID utils.SixID, operator models.CriteriaOperator, expectedValue interface{}) (*models.QualificationCriterion, error) {
	question, err := s.findQuestion(ctx, propertyID, questionID)
	if err != nil {
		return nil, err
	}
	expected, err := validateCriterion(question, operator, expectedValue)
	if err != nil {
		return nil, err
	}

	criterion := &models.QualificationCriterion{
		ID:            utils.NewSixID(),
		PropertyID:    propertyID,
		QuestionID:    questionID,
		Operator:      operator,
		ExpectedValue: expected,
	}
	operation := func() error {
		_, insertErr := s.db.Collection(criteriaCollection).InsertOne(ctx, criterion)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert criterion for property %s: %w", propertyID, err)
	}
	return criterion, nil
}

func (s *criteriaService) UpdateCriterion(ctx context.Context, propertyID, criterionID utils.SixID, operator models.CriteriaOperator, expectedValue interface{}) (*models.QualificationCriterion, error) {
	var existing models.QualificationCriterion
	filter := bson.M{"_id": criterionID, "property_id": propertyID, "deleted": false}
	if err := s.db.Collection(criteriaCollection).FindOne(ctx, filter).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding criterion %s: %w", criterionID, err)
	}

	question, err := s.findQuestion(ctx, propertyID, existing.QuestionID)
	if err != nil {
		return nil, err
	}
	expected, err := validateCriterion(question, operator, expectedValue)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"operator": operator, "expected_value": expected}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.QualificationCriterion
	if err := s.db.Collection(criteriaCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to update criterion %s: %w", criterionID, err)
	}
	return &updated, nil
}

func (s *criteriaService) DeleteCriterion(ctx context.Context, propertyID, criterionID utils.SixID) error {
	filter := bson.M{"_id": criterionID, "property_id": propertyID, "deleted": false}
	res, err := s.db.Collection(criteriaCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("failed to delete criterion %s: %w", criterionID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListCriteria returns the property's criteria in stable insertion order.
func (s *criteriaService) ListCriteria(ctx context.Context, propertyID utils.SixID) ([]models.QualificationCriterion, error) {
	filter := bson.M{"property_id": propertyID, "deleted": false}
	cursor, err := s.db.Collection(criteriaCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list criteria for property %s: %w", propertyID, err)
	}
	var criteria []models.QualificationCriterion
	if err := cursor.All(ctx, &criteria); err != nil {
		return nil, fmt.Errorf("failed to decode criteria: %w", err)
	}
	return criteria, nil
}

func (s *criteriaService) findQuestion(ctx context.Context, propertyID, questionID utils.SixID) (*models.Question, error) {
	questions, err := s.questionService.ListQuestions(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], nil
		}
	}
	return nil, apperr.NewConfiguration("question %s does not exist on property %s", questionID, propertyID)
}

// validateCriterion enforces the operator/type gate and coerces the
// expected value to the question's declared type. The switch is exhaustive
// over the closed response type set.
func validateCriterion(q *models.Question, operator models.CriteriaOperator, expectedValue interface{}) (interface{}, error) {
	if !models.OperatorAllowedFor(q.ResponseType, operator) {
		return nil, apperr.NewConfiguration("operator %q is not allowed for %s question %s", operator, q.ResponseType, q.ID)
	}

	switch q.ResponseType {
	case models.ResponseTypeNumber:
		n, ok := numericValue(expectedValue)
		if !ok {
			return nil, apperr.NewConfiguration("expected value for number question %s must be numeric", q.ID)
		}
		return n, nil
	case models.ResponseTypeBoolean:
		b, ok := expectedValue.(bool)
		if !ok {
			return nil, apperr.NewConfiguration("expected value for boolean question %s must be a boolean", q.ID)
		}
		return b, nil
	case models.ResponseTypeText:
		str, ok := expectedValue.(string)
		if !ok || str == "" {
			return nil, apperr.NewConfiguration("expected value for text question %s must be a non-empty string", q.ID)
		}
		return str, nil
	case models.ResponseTypeMultipleChoice:
		str, ok := expectedValue.(string)
		if !ok {
			return nil, apperr.NewConfiguration("expected value for multiple_choice question %s must be a string", q.ID)
		}
		if !q.HasOption(str) {
			return nil, apperr.NewConfiguration("expected value %q is not an option of question %s", str, q.ID)
		}
		return str, nil
	default:
		return nil, apperr.NewConfiguration("question %s has unknown response type %q", q.ID, q.ResponseType)
	}
}

func numericValue(v interface{}) (float64, bool) {
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
	default:
		return 0, false
	}
}

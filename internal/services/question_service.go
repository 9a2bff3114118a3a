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

// IQuestionService defines pre-qualification question operations. Question
// order within a property is a dense 0-based sequence: appends go to the
// end, deletes and reorders renumber the survivors.
type IQuestionService interface {
	CreateQuestion(ctx context.Context, propertyID utils.SixID, text string, responseType models.ResponseType, opts []string) (*models.Question, error)
	UpdateQuestion(ctx context.Context, propertyID, questionID utils.SixID, text string, responseType models.ResponseType, opts []string) (*models.Question, error)
	DeleteQuestion(ctx context.Context, propertyID, questionID utils.SixID) error
	ReorderQuestions(ctx context.Context, propertyID utils.SixID, orderedIDs []utils.SixID) error
	ListQuestions(ctx context.Context, propertyID utils.SixID) ([]models.Question, error)
	QuestionsByID(ctx context.Context, propertyID utils.SixID) (map[string]models.Question, error)
}

const questionsCollection = "questions"

type questionService struct {
	db *mongo.Database
}

// NewQuestionService creates a new question service.
func NewQuestionService(db *mongo.Database) IQuestionService {
	return &questionService{db: db}
}

func (s *questionService) CreateQuestion(ctx context.Context, propertyID utils.SixID, text string, responseType models.ResponseType, opts []string) (*models.Question, error) {
	question := &models.Question{
		ID:           utils.NewSixID(),
		PropertyID:   propertyID,
		Text:         text,
		ResponseType: responseType,
		Options:      opts,
	}
	if err := question.Validate(); err != nil {
		return nil, apperr.NewValidation("%s", err.Error())
	}

	count, err := s.db.Collection(questionsCollection).CountDocuments(ctx, bson.M{"property_id": propertyID, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("failed to count questions for property %s: %w", propertyID, err)
	}
	question.Order = int(count)

	operation := func() error {
		_, insertErr := s.db.Collection(questionsCollection).InsertOne(ctx, question)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert question for property %s: %w", propertyID, err)
	}
	return question, nil
}

func (s *questionService) UpdateQuestion(ctx context.Context, propertyID, questionID utils.SixID, text string, responseType models.ResponseType, opts []string) (*models.Question, error) {
	candidate := &models.Question{
		ID:           questionID,
		PropertyID:   propertyID,
		Text:         text,
		ResponseType: responseType,
		Options:      opts,
	}
	if err := candidate.Validate(); err != nil {
		return nil, apperr.NewValidation("%s", err.Error())
	}

	filter := bson.M{"_id": questionID, "property_id": propertyID, "deleted": false}
	update := bson.M{"$set": bson.M{
		"text":          text,
		"response_type": responseType,
		"options":       opts,
	}}
	updOpts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Question
	err := s.db.Collection(questionsCollection).FindOneAndUpdate(ctx, filter, update, updOpts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update question %s: %w", questionID, err)
	}
	return &updated, nil
}

// DeleteQuestion soft-deletes the question, removes criteria referencing
// it, and renumbers the remaining questions to keep order dense.
func (s *questionService) DeleteQuestion(ctx context.Context, propertyID, questionID utils.SixID) error {
	filter := bson.M{"_id": questionID, "property_id": propertyID, "deleted": false}
	res, err := s.db.Collection(questionsCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("failed to delete question %s: %w", questionID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	// Criteria referencing a deleted question would always fail closed;
	// remove them rather than leave the property permanently disqualifying.
	_, err = s.db.Collection(criteriaCollection).UpdateMany(ctx,
		bson.M{"question_id": questionID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("failed to remove criteria for question %s: %w", questionID, err)
	}

	return s.renumber(ctx, propertyID)
}

// ReorderQuestions applies a full new ordering. The supplied IDs must be
// exactly the property's current questions.
func (s *questionService) ReorderQuestions(ctx context.Context, propertyID utils.SixID, orderedIDs []utils.SixID) error {
	existing, err := s.ListQuestions(ctx, propertyID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(existing) {
		return apperr.NewValidation("reorder must include all %d questions, got %d", len(existing), len(orderedIDs))
	}
	known := make(map[utils.SixID]bool, len(existing))
	for _, q := range existing {
		known[q.ID] = true
	}
	seen := make(map[utils.SixID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return apperr.NewValidation("question %s does not belong to property %s", id, propertyID)
		}
		if seen[id] {
			return apperr.NewValidation("question %s appears twice in reorder", id)
		}
		seen[id] = true
	}

	for i, id := range orderedIDs {
		_, err := s.db.Collection(questionsCollection).UpdateOne(ctx,
			bson.M{"_id": id, "property_id": propertyID, "deleted": false},
			bson.M{"$set": bson.M{"order": i}})
		if err != nil {
			return fmt.Errorf("failed to reorder question %s: %w", id, err)
		}
	}
	return nil
}

func (s *questionService) ListQuestions(ctx context.Context, propertyID utils.SixID) ([]models.Question, error) {
	filter := bson.M{"property_id": propertyID, "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cursor, err := s.db.Collection(questionsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions for property %s: %w", propertyID, err)
	}
	var questions []models.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	return questions, nil
}

// QuestionsByID returns the property's questions keyed by ID string, the
// shape the evaluator consumes.
func (s *questionService) QuestionsByID(ctx context.Context, propertyID utils.SixID) (map[string]models.Question, error) {
	questions, err := s.ListQuestions(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID.String()] = q
	}
	return byID, nil
}

// renumber rewrites order as a dense 0-based sequence preserving the
// current relative order.
func (s *questionService) renumber(ctx context.Context, propertyID utils.SixID) error {
	questions, err := s.ListQuestions(ctx, propertyID)
	if err != nil {
		return err
	}
	for i, q := range questions {
		if q.Order == i {
			continue
		}
		_, err := s.db.Collection(questionsCollection).UpdateOne(ctx,
			bson.M{"_id": q.ID},
			bson.M{"$set": bson.M{"order": i}})
		if err != nil {
			return fmt.Errorf("failed to renumber question %s: %w", q.ID, err)
		}
	}
	return nil
}

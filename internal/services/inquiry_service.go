package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// CreateInquiryParams carries everything the ingestion collaborators
// (email pipeline, platform poller, manual/test injection) hand over for a
// new inquiry.
type CreateInquiryParams struct {
	PropertyID          utils.SixID
	PlatformID          string
	ExternalInquiryID   string
	ProspectiveTenantID string
	TenantEmail         string
	Message             string
	SourceType          models.InquirySource
	SourceMetadata      map[string]interface{}
}

// IInquiryService creates and inspects inquiries. Status never changes
// here; that is the workflow service's job.
type IInquiryService interface {
	CreateInquiry(ctx context.Context, params CreateInquiryParams) (*models.Inquiry, error)
	FindInquiryByID(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error)
	ListInquiries(ctx context.Context, propertyID *utils.SixID, status *models.InquiryStatus, limit int) ([]models.Inquiry, error)
	AddNote(ctx context.Context, inquiryID, authorID utils.SixID, text string) (*models.Inquiry, error)
}

type inquiryService struct {
	db              *mongo.Database
	workflowService IWorkflowService
}

// NewInquiryService creates a new inquiry service.
func NewInquiryService(db *mongo.Database, workflowService IWorkflowService) IInquiryService {
	return &inquiryService{db: db, workflowService: workflowService}
}

// CreateInquiry persists the inquiry in status new and immediately drives
// it to questionnaire_sent, which triggers the questionnaire notification.
func (s *inquiryService) CreateInquiry(ctx context.Context, params CreateInquiryParams) (*models.Inquiry, error) {
	switch params.SourceType {
	case models.SourceEmail, models.SourcePlatformAPI, models.SourceManual:
	default:
		return nil, apperr.NewValidation("unknown source type %q", params.SourceType)
	}
	if params.TenantEmail == "" {
		return nil, apperr.NewValidation("tenant email is required")
	}

	now := time.Now().UTC()
	var inquiry *models.Inquiry
	operation := func() error {
		inquiry = &models.Inquiry{
			ID:                  utils.NewSixID(),
			PropertyID:          params.PropertyID,
			PlatformID:          params.PlatformID,
			ExternalInquiryID:   params.ExternalInquiryID,
			ProspectiveTenantID: params.ProspectiveTenantID,
			TenantEmail:         params.TenantEmail,
			Message:             params.Message,
			Status:              models.StatusNew,
			SourceType:          params.SourceType,
			SourceMetadata:      params.SourceMetadata,
			Answers:             map[string]interface{}{},
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		_, insertErr := s.db.Collection(inquiriesCollection).InsertOne(ctx, inquiry)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert inquiry for property %s: %w", params.PropertyID, err)
	}

	return s.workflowService.Transition(ctx, inquiry.ID, models.StatusQuestionnaireSent, models.ActorSystem)
}

func (s *inquiryService) FindInquiryByID(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": inquiryID}).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding inquiry %s: %w", inquiryID, err)
	}
	return &inquiry, nil
}

func (s *inquiryService) ListInquiries(ctx context.Context, propertyID *utils.SixID, status *models.InquiryStatus, limit int) ([]models.Inquiry, error) {
	filter := bson.M{}
	if propertyID != nil {
		filter["property_id"] = *propertyID
	}
	if status != nil {
		filter["status"] = *status
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	var inquiries []models.Inquiry
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("failed to decode inquiries: %w", err)
	}
	return inquiries, nil
}

func (s *inquiryService) AddNote(ctx context.Context, inquiryID, authorID utils.SixID, text string) (*models.Inquiry, error) {
	if text == "" {
		return nil, apperr.NewValidation("note text is required")
	}
	note := models.InquiryNote{
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	update := bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updated_at": note.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOneAndUpdate(ctx, bson.M{"_id": inquiryID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to add note to inquiry %s: %w", inquiryID, err)
	}
	return &updated, nil
}

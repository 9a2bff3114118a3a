package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
)

// Template IDs for the outbound notifications the workflow emits.
const (
	TemplateQuestionnaire      = "questionnaire"
	TemplateSlotOffer          = "slot_offer"
	TemplateBookingConfirmed   = "booking_confirmed"
	TemplateBookingCancelled   = "booking_cancelled"
	TemplateDisqualifiedNotice = "disqualified_notice"
)

// Built-in fallbacks used when a manager has not customized a template.
var defaultMessageTemplates = map[string]models.MessageTemplate{
	TemplateQuestionnaire: {
		TemplateID: TemplateQuestionnaire,
		Locale:     "en-US",
		Subject:    "A few questions about {{.property_name}}",
		Body:       "Thanks for your interest in {{.property_name}}! Please answer the following questions so we can move forward:\n\n{{.questions}}",
	},
	TemplateSlotOffer: {
		TemplateID: TemplateSlotOffer,
		Locale:     "en-US",
		Subject:    "Schedule a {{.appointment_type}} for {{.property_name}}",
		Body:       "Great news — you are qualified for {{.property_name}}. Pick a time that works for you:\n\n{{.slot_links}}\n\nLinks expire {{.expires_at}}.",
	},
	TemplateBookingConfirmed: {
		TemplateID: TemplateBookingConfirmed,
		Locale:     "en-US",
		Subject:    "Your {{.appointment_type}} is confirmed",
		Body:       "Your {{.appointment_type}} for {{.property_name}} is confirmed for {{.scheduled_time}}. See you then!",
	},
	TemplateBookingCancelled: {
		TemplateID: TemplateBookingCancelled,
		Locale:     "en-US",
		Subject:    "Your appointment was cancelled",
		Body:       "Your {{.appointment_type}} for {{.property_name}} on {{.scheduled_time}} has been cancelled.",
	},
	TemplateDisqualifiedNotice: {
		TemplateID: TemplateDisqualifiedNotice,
		Locale:     "en-US",
		Subject:    "Update on your inquiry for {{.property_name}}",
		Body:       "Thank you for your interest in {{.property_name}}. Unfortunately we are unable to move forward with your application at this time.",
	},
}

// ITemplateService defines message template operations.
type ITemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.MessageTemplate, error)
	UpdateTemplate(ctx context.Context, templateID, locale, subject, body string) (*models.MessageTemplate, error)
	ListTemplates(ctx context.Context, locale string) ([]models.MessageTemplate, error)
}

const templatesCollection = "message_templates"

type templateService struct {
	db *mongo.Database
}

// NewTemplateService creates a new template service.
func NewTemplateService(db *mongo.Database) ITemplateService {
	return &templateService{db: db}
}

// GetTemplate returns the stored template, falling back to the built-in
// default when none has been saved.
func (s *templateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.MessageTemplate, error) {
	var tmpl models.MessageTemplate
	filter := bson.M{"template_id": templateID, "locale": locale}
	err := s.db.Collection(templatesCollection).FindOne(ctx, filter).Decode(&tmpl)
	if err == nil {
		return &tmpl, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to load template %s: %w", templateID, err)
	}
	if def, ok := defaultMessageTemplates[templateID]; ok {
		return &def, nil
	}
	return nil, apperr.NewValidation("unknown template %q", templateID)
}

// UpdateTemplate upserts manager-edited subject and body.
func (s *templateService) UpdateTemplate(ctx context.Context, templateID, locale, subject, body string) (*models.MessageTemplate, error) {
	if _, ok := defaultMessageTemplates[templateID]; !ok {
		return nil, apperr.NewValidation("unknown template %q", templateID)
	}
	if subject == "" || body == "" {
		return nil, apperr.NewValidation("template subject and body are required")
	}

	filter := bson.M{"template_id": templateID, "locale": locale}
	update := bson.M{"$set": bson.M{"subject": subject, "body": body}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var tmpl models.MessageTemplate
	if err := s.db.Collection(templatesCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("failed to update template %s: %w", templateID, err)
	}
	return &tmpl, nil
}

// ListTemplates returns every template, with defaults filling the gaps.
func (s *templateService) ListTemplates(ctx context.Context, locale string) ([]models.MessageTemplate, error) {
	cursor, err := s.db.Collection(templatesCollection).Find(ctx, bson.M{"locale": locale})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	var stored []models.MessageTemplate
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	byID := make(map[string]models.MessageTemplate, len(stored))
	for _, t := range stored {
		byID[t.TemplateID] = t
	}
	out := make([]models.MessageTemplate, 0, len(defaultMessageTemplates))
	for id, def := range defaultMessageTemplates {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		} else {
			out = append(out, def)
		}
	}
	return out, nil
}

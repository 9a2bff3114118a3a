package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// asynqNotifier turns workflow events into queued email tasks. It is the
// only bridge between the state machine and outbound messaging; a failed
// enqueue is logged and never fails the transition that triggered it.
type asynqNotifier struct {
	cfg             *config.Config
	client          *asynq.Client
	propertyService services.IPropertyService
	questionService services.IQuestionService
}

// NewNotifier creates the notifier used by the workflow and booking
// services.
func NewNotifier(cfg *config.Config, client *asynq.Client, propertyService services.IPropertyService, questionService services.IQuestionService) services.Notifier {
	return &asynqNotifier{
		cfg:             cfg,
		client:          client,
		propertyService: propertyService,
		questionService: questionService,
	}
}

func (n *asynqNotifier) InquiryTransitioned(ctx context.Context, inquiry *models.Inquiry, event *models.WorkflowEvent) {
	var templateID string
	data := map[string]interface{}{}

	switch event.ToStatus {
	case models.StatusQuestionnaireSent:
		templateID = services.TemplateQuestionnaire
		data["questions"] = n.questionList(ctx, inquiry.PropertyID)
	case models.StatusQualified:
		// Qualification moves straight toward scheduling: queue the
		// automatic slot-offer batch. The offer email itself follows from
		// OffersIssued once the batch is minted.
		n.enqueueOfferIssue(ctx, inquiry)
		return
	case models.StatusDisqualified:
		templateID = services.TemplateDisqualifiedNotice
	case models.StatusAppointmentScheduled:
		templateID = services.TemplateBookingConfirmed
	case models.StatusCancelled:
		// Only worth a message when an appointment existed.
		if event.FromStatus != models.StatusAppointmentScheduled {
			return
		}
		templateID = services.TemplateBookingCancelled
	default:
		return
	}

	n.fillPropertyName(ctx, inquiry, data)
	n.enqueueEmail(ctx, inquiry.TenantEmail, templateID, data)
}

func (n *asynqNotifier) OffersIssued(ctx context.Context, inquiry *models.Inquiry, tokens []models.BookingToken) {
	if len(tokens) == 0 {
		return
	}

	var sb strings.Builder
	for _, t := range tokens {
		fmt.Fprintf(&sb, "%s at %s: %s/public/booking/%s\n",
			t.Slot.Date, t.Slot.StartTime, n.cfg.PublicBaseURL, t.Token)
	}

	data := map[string]interface{}{
		"slot_links":       sb.String(),
		"appointment_type": string(tokens[0].Slot.AppointmentType),
		"expires_at":       tokens[0].ExpiresAt.Format(time.RFC1123),
	}
	n.fillPropertyName(ctx, inquiry, data)
	n.enqueueEmail(ctx, inquiry.TenantEmail, services.TemplateSlotOffer, data)
}

func (n *asynqNotifier) fillPropertyName(ctx context.Context, inquiry *models.Inquiry, data map[string]interface{}) {
	property, err := n.propertyService.FindPropertyByID(ctx, inquiry.PropertyID)
	if err != nil {
		log.Printf("Notifier could not load property %s: %v", inquiry.PropertyID, err)
		data["property_name"] = "the property"
		return
	}
	data["property_name"] = property.Name
}

func (n *asynqNotifier) questionList(ctx context.Context, propertyID utils.SixID) string {
	questions, err := n.questionService.ListQuestions(ctx, propertyID)
	if err != nil {
		log.Printf("Notifier could not load questions: %v", err)
		return ""
	}
	var sb strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.Text)
	}
	return sb.String()
}

func (n *asynqNotifier) enqueueOfferIssue(ctx context.Context, inquiry *models.Inquiry) {
	payload, err := json.Marshal(OfferIssuePayload{InquiryID: inquiry.ID.String()})
	if err != nil {
		log.Printf("Failed to marshal offer payload for inquiry %s: %v", inquiry.ID, err)
		return
	}
	task := asynq.NewTask(TypeOfferIssue, payload)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5)); err != nil {
		log.Printf("Failed to enqueue offer batch for inquiry %s: %v", inquiry.ID, err)
	}
}

func (n *asynqNotifier) enqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) {
	payload, err := json.Marshal(EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		log.Printf("Failed to marshal email payload for %s: %v", templateID, err)
		return
	}
	task := asynq.NewTask(TypeEmailDelivery, payload)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5)); err != nil {
		log.Printf("Failed to enqueue %s email to %s: %v", templateID, to, err)
	}
}

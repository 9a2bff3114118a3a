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
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/qualification"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

// IWorkflowService owns every mutation of Inquiry.status. Transitions are
// serialized per inquiry with a compare-and-set on the current status, so
// two concurrent transitions on the same inquiry cannot interleave;
// inquiries are independent of each other.
type IWorkflowService interface {
	Transition(ctx context.Context, inquiryID utils.SixID, to models.InquiryStatus, actor string) (*models.Inquiry, error)
	SubmitAnswers(ctx context.Context, inquiryID utils.SixID, answers map[string]interface{}) (*models.Inquiry, error)
	Override(ctx context.Context, inquiryID utils.SixID, override workflow.OverrideType) (*models.Inquiry, error)
	CompleteAppointment(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error)
	ListEvents(ctx context.Context, inquiryID utils.SixID) ([]models.WorkflowEvent, error)
}

const (
	inquiriesCollection      = "inquiries"
	workflowEventsCollection = "workflow_events"
)

type workflowService struct {
	db                 *mongo.Database
	questionService    IQuestionService
	criteriaService    ICriteriaService
	appointmentService IAppointmentService
	notifier           Notifier
}

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(db *mongo.Database, questionService IQuestionService, criteriaService ICriteriaService, appointmentService IAppointmentService, notifier Notifier) IWorkflowService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &workflowService{
		db:                 db,
		questionService:    questionService,
		criteriaService:    criteriaService,
		appointmentService: appointmentService,
		notifier:           notifier,
	}
}

func (s *workflowService) loadInquiry(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
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

// Transition moves the inquiry along an automatic lifecycle edge.
func (s *workflowService) Transition(ctx context.Context, inquiryID utils.SixID, to models.InquiryStatus, actor string) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(inquiry.Status, to) {
		return nil, &apperr.StateError{CurrentStatus: string(inquiry.Status), Attempted: string(to)}
	}
	return s.commit(ctx, inquiry, to, actor, nil)
}

// commit performs the compare-and-set status write, records the event and
// hands it to the notifier. extraSet carries fields that must change
// atomically with the status (e.g. the qualification result).
func (s *workflowService) commit(ctx context.Context, inquiry *models.Inquiry, to models.InquiryStatus, actor string, extraSet bson.M) (*models.Inquiry, error) {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extraSet {
		set[k] = v
	}

	filter := bson.M{"_id": inquiry.ID, "status": inquiry.Status}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Someone transitioned the inquiry between our read and write.
			return nil, fmt.Errorf("%w: inquiry %s left status %s", apperr.ErrConcurrencyConflict, inquiry.ID, inquiry.Status)
		}
		return nil, fmt.Errorf("failed to transition inquiry %s: %w", inquiry.ID, err)
	}

	event := &models.WorkflowEvent{
		ID:         utils.NewSixID(),
		InquiryID:  inquiry.ID,
		FromStatus: inquiry.Status,
		ToStatus:   to,
		Actor:      actor,
		At:         time.Now().UTC(),
	}
	if _, err := s.db.Collection(workflowEventsCollection).InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record workflow event for inquiry %s: %w", inquiry.ID, err)
	}

	s.notifier.InquiryTransitioned(ctx, &updated, event)
	return &updated, nil
}

// SubmitAnswers merges questionnaire answers into the inquiry. Once every
// question is answered the inquiry advances through questionnaire_completed
// and pre_qualifying, where the criteria evaluation runs exactly once.
// Partial answers are stored without advancing the lifecycle.
func (s *workflowService) SubmitAnswers(ctx context.Context, inquiryID utils.SixID, answers map[string]interface{}) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status != models.StatusQuestionnaireSent {
		return nil, &apperr.StateError{CurrentStatus: string(inquiry.Status), Attempted: "submit_answers"}
	}

	questions, err := s.questionService.QuestionsByID(ctx, inquiry.PropertyID)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, apperr.NewValidation("no answers submitted")
	}
	for qid := range answers {
		if _, ok := questions[qid]; !ok {
			return nil, apperr.NewValidation("answer references unknown question %q", qid)
		}
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	for qid, value := range answers {
		set["answers."+qid] = value
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Inquiry
	err = s.db.Collection(inquiriesCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": inquiry.ID, "status": models.StatusQuestionnaireSent}, bson.M{"$set": set}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: inquiry %s left status %s", apperr.ErrConcurrencyConflict, inquiry.ID, inquiry.Status)
		}
		return nil, fmt.Errorf("failed to store answers for inquiry %s: %w", inquiry.ID, err)
	}

	for qid := range questions {
		if _, ok := updated.Answers[qid]; !ok {
			// Questionnaire still incomplete; wait for the rest.
			return &updated, nil
		}
	}

	completed, err := s.commit(ctx, &updated, models.StatusQuestionnaireCompleted, models.ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	preQualifying, err := s.commit(ctx, completed, models.StatusPreQualifying, models.ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	return s.runQualification(ctx, preQualifying, questions)
}

// runQualification is the sole transition out of pre_qualifying.
func (s *workflowService) runQualification(ctx context.Context, inquiry *models.Inquiry, questions map[string]models.Question) (*models.Inquiry, error) {
	criteria, err := s.criteriaService.ListCriteria(ctx, inquiry.PropertyID)
	if err != nil {
		return nil, err
	}

	verdict := qualification.Evaluate(inquiry.Answers, criteria, questions)
	result := &models.QualificationResult{
		Qualified:      verdict.Qualified,
		FailedCriteria: verdict.FailedCriteria,
		Diagnostics:    verdict.Diagnostics,
		EvaluatedAt:    time.Now().UTC(),
	}

	to := models.StatusDisqualified
	if verdict.Qualified {
		to = models.StatusQualified
	}
	return s.commit(ctx, inquiry, to, models.ActorSystem, bson.M{"qualification_result": result})
}

// Override applies a manager-initiated transition that bypasses automatic
// gating. Overrides are idempotent no-ops when the inquiry is already in
// the target status.
func (s *workflowService) Override(ctx context.Context, inquiryID utils.SixID, override workflow.OverrideType) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	target, noop, err := workflow.ApplyOverride(inquiry.Status, override)
	if err != nil {
		return nil, err
	}
	if noop {
		return inquiry, nil
	}

	var extraSet bson.M
	switch override {
	case workflow.OverrideQualify:
		extraSet = bson.M{"qualification_result.qualified": true}
	case workflow.OverrideDisqualify:
		extraSet = bson.M{"qualification_result.qualified": false}
	case workflow.OverrideCancelAppointment:
		if err := s.appointmentService.CancelForInquiry(ctx, inquiry.ID); err != nil {
			return nil, err
		}
	}

	return s.commit(ctx, inquiry, target, models.ActorManager, extraSet)
}

// CompleteAppointment marks the appointment done and closes the inquiry
// lifecycle.
func (s *workflowService) CompleteAppointment(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
	inquiry, err := s.loadInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if inquiry.Status != models.StatusAppointmentScheduled {
		return nil, &apperr.StateError{CurrentStatus: string(inquiry.Status), Attempted: "complete_appointment"}
	}
	if err := s.appointmentService.CompleteForInquiry(ctx, inquiry.ID); err != nil {
		return nil, err
	}
	return s.commit(ctx, inquiry, models.StatusAppointmentCompleted, models.ActorManager, nil)
}

// ListEvents returns the immutable transition log, oldest first.
func (s *workflowService) ListEvents(ctx context.Context, inquiryID utils.SixID) ([]models.WorkflowEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}})
	cursor, err := s.db.Collection(workflowEventsCollection).Find(ctx, bson.M{"inquiry_id": inquiryID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow events for inquiry %s: %w", inquiryID, err)
	}
	var events []models.WorkflowEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode workflow events: %w", err)
	}
	return events, nil
}

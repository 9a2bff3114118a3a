package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

func setupTestDBWorkflow(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName,
		"inquiries", "workflow_events", "questions", "qualification_criteria",
		"appointments", "slot_locks")
}

type workflowFixture struct {
	db             *mongo.Database
	questionSvc    IQuestionService
	criteriaSvc    ICriteriaService
	appointmentSvc IAppointmentService
	workflowSvc    IWorkflowService
	inquirySvc     IInquiryService
	propertyID     utils.SixID
}

func newWorkflowFixture(t *testing.T, dbName string) *workflowFixture {
	db := setupTestDBWorkflow(t, dbName)
	questionSvc := NewQuestionService(db)
	criteriaSvc := NewCriteriaService(db, questionSvc)
	appointmentSvc := NewAppointmentService(db)
	workflowSvc := NewWorkflowService(db, questionSvc, criteriaSvc, appointmentSvc, nil)
	return &workflowFixture{
		db:             db,
		questionSvc:    questionSvc,
		criteriaSvc:    criteriaSvc,
		appointmentSvc: appointmentSvc,
		workflowSvc:    workflowSvc,
		inquirySvc:     NewInquiryService(db, workflowSvc),
		propertyID:     utils.NewSixID(),
	}
}

func (f *workflowFixture) newInquiry(t *testing.T) *models.Inquiry {
	inquiry, err := f.inquirySvc.CreateInquiry(context.Background(), CreateInquiryParams{
		PropertyID:  f.propertyID,
		TenantEmail: "prospect@example.com",
		SourceType:  models.SourceManual,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusQuestionnaireSent, inquiry.Status)
	return inquiry
}

func TestWorkflowService_SubmitAnswersQualifies(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_qualifies")
	ctx := context.Background()

	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	pets, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Pets?", models.ResponseTypeBoolean, nil)
	require.NoError(t, err)
	_, err = f.criteriaSvc.CreateCriterion(ctx, f.propertyID, income.ID, models.OperatorGreaterThan, 3000)
	require.NoError(t, err)

	inquiry := f.newInquiry(t)

	// Partial submission stores the answer without moving the lifecycle.
	partial, err := f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{
		income.ID.String(): 5000,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQuestionnaireSent, partial.Status)
	assert.Contains(t, partial.Answers, income.ID.String())
	assert.Nil(t, partial.QualificationResult)

	// The final answer completes the questionnaire and runs qualification.
	final, err := f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{
		pets.ID.String(): false,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQualified, final.Status)
	require.NotNil(t, final.QualificationResult)
	assert.True(t, final.QualificationResult.Qualified)

	// The event log records every hop in order.
	events, err := f.workflowSvc.ListEvents(ctx, inquiry.ID)
	assert.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, models.StatusQuestionnaireSent, events[0].ToStatus)
	assert.Equal(t, models.StatusQuestionnaireCompleted, events[1].ToStatus)
	assert.Equal(t, models.StatusPreQualifying, events[2].ToStatus)
	assert.Equal(t, models.StatusQualified, events[3].ToStatus)
}

func TestWorkflowService_SubmitAnswersDisqualifies(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_disqualifies")
	ctx := context.Background()

	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	crit, err := f.criteriaSvc.CreateCriterion(ctx, f.propertyID, income.ID, models.OperatorGreaterThan, 3000)
	require.NoError(t, err)

	inquiry := f.newInquiry(t)
	final, err := f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{
		income.ID.String(): 2000,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDisqualified, final.Status)
	require.NotNil(t, final.QualificationResult)
	assert.False(t, final.QualificationResult.Qualified)
	require.Len(t, final.QualificationResult.FailedCriteria, 1)
	assert.Equal(t, crit.ID, final.QualificationResult.FailedCriteria[0].ID)
}

func TestWorkflowService_SubmitAnswersValidation(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_answers_validation")
	ctx := context.Background()

	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	inquiry := f.newInquiry(t)

	var valErr *apperr.ValidationError
	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{})
	assert.ErrorAs(t, err, &valErr)

	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{
		utils.NewSixID().String(): "stray",
	})
	assert.ErrorAs(t, err, &valErr)

	// Answers are rejected once the questionnaire phase is over.
	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{income.ID.String(): 4000})
	require.NoError(t, err)
	var stateErr *apperr.StateError
	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{income.ID.String(): 4000})
	assert.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(models.StatusQualified), stateErr.CurrentStatus)

	_, err = f.workflowSvc.SubmitAnswers(ctx, utils.NewSixID(), map[string]interface{}{income.ID.String(): 1})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestWorkflowService_Overrides(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_overrides")
	ctx := context.Background()

	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	_, err = f.criteriaSvc.CreateCriterion(ctx, f.propertyID, income.ID, models.OperatorGreaterThan, 3000)
	require.NoError(t, err)

	inquiry := f.newInquiry(t)
	disqualified, err := f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{
		income.ID.String(): 1000,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusDisqualified, disqualified.Status)

	// The manager disagrees with the automatic verdict.
	qualified, err := f.workflowSvc.Override(ctx, inquiry.ID, workflow.OverrideQualify)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQualified, qualified.Status)
	require.NotNil(t, qualified.QualificationResult)
	assert.True(t, qualified.QualificationResult.Qualified)

	// Repeating the override is an idempotent no-op.
	again, err := f.workflowSvc.Override(ctx, inquiry.ID, workflow.OverrideQualify)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusQualified, again.Status)

	// And back.
	back, err := f.workflowSvc.Override(ctx, inquiry.ID, workflow.OverrideDisqualify)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDisqualified, back.Status)

	// cancel_appointment is not defined from disqualified.
	var stateErr *apperr.StateError
	_, err = f.workflowSvc.Override(ctx, inquiry.ID, workflow.OverrideCancelAppointment)
	assert.ErrorAs(t, err, &stateErr)
}

func TestWorkflowService_CancelAppointmentOverride(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_cancel_appt")
	ctx := context.Background()

	inquiry := f.newInquiry(t)
	managerID := utils.NewSixID()

	// Drive the inquiry to appointment_scheduled with a real appointment.
	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{income.ID.String(): 4000})
	require.NoError(t, err)

	appt, err := f.appointmentSvc.CreateLocked(ctx, &models.Appointment{
		InquiryID:     inquiry.ID,
		ManagerID:     managerID,
		Type:          models.AppointmentTour,
		ScheduledTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Duration:      30,
	})
	require.NoError(t, err)
	_, err = f.workflowSvc.Transition(ctx, inquiry.ID, models.StatusAppointmentScheduled, models.ActorSystem)
	require.NoError(t, err)

	cancelled, err := f.workflowSvc.Override(ctx, inquiry.ID, workflow.OverrideCancelAppointment)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	got, err := f.appointmentSvc.FindByID(ctx, appt.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, got.Status)
}

func TestWorkflowService_CompleteAppointment(t *testing.T) {
	f := newWorkflowFixture(t, "testdb_workflow_complete_appt")
	ctx := context.Background()

	inquiry := f.newInquiry(t)
	income, err := f.questionSvc.CreateQuestion(ctx, f.propertyID, "Monthly income?", models.ResponseTypeNumber, nil)
	require.NoError(t, err)
	_, err = f.workflowSvc.SubmitAnswers(ctx, inquiry.ID, map[string]interface{}{income.ID.String(): 4000})
	require.NoError(t, err)

	// Completing before anything is scheduled is a state error.
	var stateErr *apperr.StateError
	_, err = f.workflowSvc.CompleteAppointment(ctx, inquiry.ID)
	assert.ErrorAs(t, err, &stateErr)

	appt, err := f.appointmentSvc.CreateLocked(ctx, &models.Appointment{
		InquiryID:     inquiry.ID,
		ManagerID:     utils.NewSixID(),
		Type:          models.AppointmentVideoCall,
		ScheduledTime: time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC),
		Duration:      30,
	})
	require.NoError(t, err)
	_, err = f.workflowSvc.Transition(ctx, inquiry.ID, models.StatusAppointmentScheduled, models.ActorSystem)
	require.NoError(t, err)

	done, err := f.workflowSvc.CompleteAppointment(ctx, inquiry.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAppointmentCompleted, done.Status)

	got, err := f.appointmentSvc.FindByID(ctx, appt.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, got.Status)

	// Terminal: nothing moves it again, not even cancellation.
	_, err = f.workflowSvc.Transition(ctx, inquiry.ID, models.StatusCancelled, models.ActorManager)
	assert.ErrorAs(t, err, &stateErr)
}

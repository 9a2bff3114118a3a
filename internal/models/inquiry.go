package models

import (
	"time"

	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// InquiryStatus is the workflow lifecycle state of an inquiry. Transitions
// between statuses go through the workflow package only.
type InquiryStatus string

const (
	StatusNew                    InquiryStatus = "new"
	StatusQuestionnaireSent      InquiryStatus = "questionnaire_sent"
	StatusQuestionnaireCompleted InquiryStatus = "questionnaire_completed"
	StatusPreQualifying          InquiryStatus = "pre_qualifying"
	StatusQualified              InquiryStatus = "qualified"
	StatusDisqualified           InquiryStatus = "disqualified"
	StatusAppointmentScheduled   InquiryStatus = "appointment_scheduled"
	StatusAppointmentCompleted   InquiryStatus = "appointment_completed"
	StatusCancelled              InquiryStatus = "cancelled"
)

// InquirySource identifies how an inquiry entered the system.
type InquirySource string

const (
	SourceEmail       InquirySource = "email"
	SourcePlatformAPI InquirySource = "platform_api"
	SourceManual      InquirySource = "manual"
)

// QualificationResult records the outcome of criteria evaluation for an
// inquiry. FailedCriteria lists every failing criterion in configuration
// order so the manager can see why a prospect was rejected.
type QualificationResult struct {
	Qualified      bool                     `bson:"qualified" json:"qualified"`
	FailedCriteria []QualificationCriterion `bson:"failed_criteria,omitempty" json:"failed_criteria,omitempty"`
	Diagnostics    []string                 `bson:"diagnostics,omitempty" json:"diagnostics,omitempty"`
	EvaluatedAt    time.Time                `bson:"evaluated_at" json:"evaluated_at"`
}

// InquiryNote is a free-form manager annotation on an inquiry.
type InquiryNote struct {
	AuthorID  utils.SixID `bson:"author_id" json:"author_id"`
	Text      string      `bson:"text" json:"text"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// Inquiry is a prospective tenant's contact event for one property,
// tracked through the qualification and scheduling lifecycle. Inquiries are
// never deleted; archiving the property hides them implicitly.
type Inquiry struct {
	ID                  utils.SixID            `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID          utils.SixID            `bson:"property_id" json:"property_id"`
	PlatformID          string                 `bson:"platform_id,omitempty" json:"platform_id,omitempty"`
	ExternalInquiryID   string                 `bson:"external_inquiry_id,omitempty" json:"external_inquiry_id,omitempty"`
	ProspectiveTenantID string                 `bson:"prospective_tenant_id" json:"prospective_tenant_id"`
	TenantEmail         string                 `bson:"tenant_email" json:"tenant_email"`
	Message             string                 `bson:"message,omitempty" json:"message,omitempty"`
	Status              InquiryStatus          `bson:"status" json:"status"`
	SourceType          InquirySource          `bson:"source_type" json:"source_type"`
	SourceMetadata      map[string]interface{} `bson:"source_metadata,omitempty" json:"source_metadata,omitempty"`
	Answers             map[string]interface{} `bson:"answers,omitempty" json:"answers,omitempty"` // questionID string -> value
	QualificationResult *QualificationResult   `bson:"qualification_result,omitempty" json:"qualification_result,omitempty"`
	Notes               []InquiryNote          `bson:"notes,omitempty" json:"notes,omitempty"`
	// TokenGeneration is bumped on every slot-offer batch; booking tokens
	// from older generations are rejected at confirmation.
	TokenGeneration int64     `bson:"token_generation" json:"-"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// WorkflowEvent is one immutable record of a status transition. The event
// log is the seam the notification pipeline consumes; the workflow itself
// never sends messages.
type WorkflowEvent struct {
	ID         utils.SixID   `bson:"_id,omitempty" json:"id,omitempty"`
	InquiryID  utils.SixID   `bson:"inquiry_id" json:"inquiry_id"`
	FromStatus InquiryStatus `bson:"from_status" json:"from_status"`
	ToStatus   InquiryStatus `bson:"to_status" json:"to_status"`
	Actor      string        `bson:"actor" json:"actor"` // "system" or "manager"
	At         time.Time     `bson:"at" json:"at"`
}

const (
	ActorSystem  = "system"
	ActorManager = "manager"
)

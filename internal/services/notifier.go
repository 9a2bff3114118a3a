package services

import (
	"context"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
)

// Notifier is the seam between the workflow engine and the outbound
// messaging collaborator. Implementations enqueue background work; they
// must not block on delivery. The engine only reports what happened; it
// never sends messages itself.
type Notifier interface {
	// InquiryTransitioned is called after every recorded workflow event.
	InquiryTransitioned(ctx context.Context, inquiry *models.Inquiry, event *models.WorkflowEvent)
	// OffersIssued is called when a fresh slot-offer batch is minted.
	OffersIssued(ctx context.Context, inquiry *models.Inquiry, tokens []models.BookingToken)
}

// NopNotifier discards all notifications. Used in tests and tooling.
type NopNotifier struct{}

func (NopNotifier) InquiryTransitioned(context.Context, *models.Inquiry, *models.WorkflowEvent) {}
func (NopNotifier) OffersIssued(context.Context, *models.Inquiry, []models.BookingToken)       {}

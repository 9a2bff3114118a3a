package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
	"github.com/gahimbaref/Rentema-sub002/internal/workflow"
)

// --- Mocks ---

// MockBookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) IssueOffers(ctx context.Context, inquiryID utils.SixID, appointmentType models.AppointmentType, duration int) ([]models.BookingToken, error) {
	args := m.Called(ctx, inquiryID, appointmentType, duration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingToken), args.Error(1)
}

func (m *MockBookingService) GetToken(ctx context.Context, token string) (*models.BookingToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingToken), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, token string) (*models.Appointment, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

// MockWorkflowService
type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) Transition(ctx context.Context, inquiryID utils.SixID, to models.InquiryStatus, actor string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, to, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockWorkflowService) SubmitAnswers(ctx context.Context, inquiryID utils.SixID, answers map[string]interface{}) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockWorkflowService) Override(ctx context.Context, inquiryID utils.SixID, override workflow.OverrideType) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockWorkflowService) CompleteAppointment(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockWorkflowService) ListEvents(ctx context.Context, inquiryID utils.SixID) ([]models.WorkflowEvent, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkflowEvent), args.Error(1)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) CreateInquiry(ctx context.Context, params services.CreateInquiryParams) (*models.Inquiry, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) FindInquiryByID(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ListInquiries(ctx context.Context, propertyID *utils.SixID, status *models.InquiryStatus, limit int) ([]models.Inquiry, error) {
	args := m.Called(ctx, propertyID, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) AddNote(ctx context.Context, inquiryID, authorID utils.SixID, text string) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, authorID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

// MockManagerService
type MockManagerService struct {
	mock.Mock
}

func (m *MockManagerService) CreateManager(ctx context.Context, email, password, name string, isAdmin bool) (*models.Manager, error) {
	args := m.Called(ctx, email, password, name, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Manager), args.Error(1)
}

func (m *MockManagerService) FindManagerByID(ctx context.Context, managerID utils.SixID) (*models.Manager, error) {
	args := m.Called(ctx, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Manager), args.Error(1)
}

func (m *MockManagerService) Login(ctx context.Context, email, password string) (string, *models.Manager, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.Manager), args.Error(2)
}

// MockAppointmentService
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) CreateLocked(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	args := m.Called(ctx, appt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) FindByID(ctx context.Context, appointmentID utils.SixID) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) List(ctx context.Context, managerID utils.SixID, from, to *time.Time) ([]models.Appointment, error) {
	args := m.Called(ctx, managerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) ListForWindow(ctx context.Context, managerID utils.SixID, start, end time.Time) ([]models.Appointment, error) {
	args := m.Called(ctx, managerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Cancel(ctx context.Context, appointmentID, managerID utils.SixID) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, managerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) CancelForInquiry(ctx context.Context, inquiryID utils.SixID) error {
	args := m.Called(ctx, inquiryID)
	return args.Error(0)
}

func (m *MockAppointmentService) CompleteForInquiry(ctx context.Context, inquiryID utils.SixID) error {
	args := m.Called(ctx, inquiryID)
	return args.Error(0)
}

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) UpsertSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType, recurringWeekly map[string][]models.TimeBlock, blockedDates []models.DateRange) (*models.AvailabilitySchedule, error) {
	args := m.Called(ctx, managerID, scheduleType, recurringWeekly, blockedDates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilitySchedule), args.Error(1)
}

func (m *MockAvailabilityService) GetSchedule(ctx context.Context, managerID utils.SixID, scheduleType models.AppointmentType) (*models.AvailabilitySchedule, error) {
	args := m.Called(ctx, managerID, scheduleType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilitySchedule), args.Error(1)
}

func (m *MockAvailabilityService) SlotsForDate(ctx context.Context, managerID utils.SixID, date string, scheduleType models.AppointmentType, duration int, now time.Time) ([]time.Time, error) {
	args := m.Called(ctx, managerID, date, scheduleType, duration, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

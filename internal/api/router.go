package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/api/handlers"
	"github.com/gahimbaref/Rentema-sub002/internal/api/middleware"
	"github.com/gahimbaref/Rentema-sub002/internal/captcha"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/storage"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// Services bundles everything the routers need. Built once in main and
// shared with the background worker so both sides drive the same workflow.
type Services struct {
	Manager      services.IManagerService
	Property     services.IPropertyService
	Question     services.IQuestionService
	Criteria     services.ICriteriaService
	Inquiry      services.IInquiryService
	Workflow     services.IWorkflowService
	Availability services.IAvailabilityService
	Appointment  services.IAppointmentService
	Booking      services.IBookingService
	Template     services.ITemplateService
	Storage      storage.IS3Storage
}

// NewServices wires the service layer in dependency order.
func NewServices(cfg *config.Config, db *mongo.Database, notifier services.Notifier) (*Services, error) {
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}

	questionSvc := services.NewQuestionService(db)
	criteriaSvc := services.NewCriteriaService(db, questionSvc)
	appointmentSvc := services.NewAppointmentService(db)
	workflowSvc := services.NewWorkflowService(db, questionSvc, criteriaSvc, appointmentSvc, notifier)
	availabilitySvc := services.NewAvailabilityService(db, cfg, appointmentSvc)
	propertySvc := services.NewPropertyService(db)
	bookingSvc := services.NewBookingService(db, cfg, propertySvc, availabilitySvc, appointmentSvc, workflowSvc, notifier)
	inquirySvc := services.NewInquiryService(db, workflowSvc)

	return &Services{
		Manager:      services.NewManagerService(db, cfg),
		Property:     propertySvc,
		Question:     questionSvc,
		Criteria:     criteriaSvc,
		Inquiry:      inquirySvc,
		Workflow:     workflowSvc,
		Availability: availabilitySvc,
		Appointment:  appointmentSvc,
		Booking:      bookingSvc,
		Template:     services.NewTemplateService(db),
		Storage:      s3Storage,
	}, nil
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svcs *Services, taskClient handlers.IAsynqClient) *gin.Engine {
	captchaVerifier := captcha.NewTurnstileVerifier(cfg)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	authHandler := handlers.NewRestAuthHandler(svcs.Manager)
	propertyHandler := handlers.NewRestPropertyHandler(svcs.Property, svcs.Storage, taskClient)
	questionHandler := handlers.NewRestQuestionHandler(svcs.Question, svcs.Criteria)
	inquiryHandler := handlers.NewRestInquiryHandler(svcs.Inquiry, svcs.Workflow, svcs.Booking)
	scheduleHandler := handlers.NewRestScheduleHandler(svcs.Availability, svcs.Appointment, svcs.Workflow)
	templateHandler := handlers.NewRestTemplateHandler(svcs.Template)
	bookingHandler := handlers.NewPublicBookingHandler(svcs.Booking)

	// Public booking pages, reached via emailed token links. Rate limited,
	// and confirmation additionally requires a captcha challenge.
	public := r.Group("/public/booking")
	public.Use(rateLimiter.Limit())
	{
		public.GET("/:token", bookingHandler.GetBooking)
		public.POST("/:token/confirm", middleware.CaptchaMiddleware(captchaVerifier), bookingHandler.ConfirmBooking)
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", rateLimiter.Limit(), authHandler.Login)
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/properties", propertyHandler.ListProperties)
			authRequired.POST("/properties", propertyHandler.CreateProperty)
			authRequired.GET("/properties/:id", propertyHandler.GetProperty)
			authRequired.PATCH("/properties/:id", propertyHandler.UpdateProperty)
			authRequired.POST("/properties/:id/archive", propertyHandler.ArchiveProperty)
			authRequired.POST("/properties/:id/photos", propertyHandler.RequestPhotoUpload)
			authRequired.POST("/properties/:id/photos/complete", propertyHandler.CompletePhotoUpload)

			authRequired.GET("/properties/:id/questions", questionHandler.ListQuestions)
			authRequired.POST("/properties/:id/questions", questionHandler.CreateQuestion)
			authRequired.PUT("/properties/:id/questions/order", questionHandler.ReorderQuestions)
			authRequired.PUT("/properties/:id/questions/:question_id", questionHandler.UpdateQuestion)
			authRequired.DELETE("/properties/:id/questions/:question_id", questionHandler.DeleteQuestion)

			authRequired.GET("/properties/:id/criteria", questionHandler.ListCriteria)
			authRequired.POST("/properties/:id/criteria", questionHandler.CreateCriterion)
			authRequired.PUT("/properties/:id/criteria/:criterion_id", questionHandler.UpdateCriterion)
			authRequired.DELETE("/properties/:id/criteria/:criterion_id", questionHandler.DeleteCriterion)

			authRequired.GET("/inquiries", inquiryHandler.ListInquiries)
			authRequired.POST("/inquiries", inquiryHandler.CreateInquiry)
			authRequired.GET("/inquiries/:id", inquiryHandler.GetInquiry)
			authRequired.POST("/inquiries/:id/answers", inquiryHandler.SubmitAnswers)
			authRequired.POST("/inquiries/:id/override", inquiryHandler.Override)
			authRequired.POST("/inquiries/:id/complete", inquiryHandler.CompleteAppointment)
			authRequired.POST("/inquiries/:id/notes", inquiryHandler.AddNote)
			authRequired.GET("/inquiries/:id/events", inquiryHandler.ListEvents)
			authRequired.POST("/inquiries/:id/offers", inquiryHandler.IssueOffers)

			authRequired.GET("/availability/:type", scheduleHandler.GetSchedule)
			authRequired.PUT("/availability/:type", scheduleHandler.UpsertSchedule)
			authRequired.GET("/availability/:type/slots", scheduleHandler.PreviewSlots)
			authRequired.GET("/appointments", scheduleHandler.ListAppointments)
			authRequired.POST("/appointments/:id/cancel", scheduleHandler.CancelAppointment)

			authRequired.GET("/templates", templateHandler.ListTemplates)
			authRequired.PUT("/templates/:template_id", templateHandler.UpdateTemplate)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/managers", authHandler.CreateManager)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine: shutdown,
// mock email retrieval for end-to-end tests, and unauthenticated inquiry
// injection simulating the inbound email/platform pipelines.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, inquirySvc services.IInquiryService, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/test/inquiries", func(c *gin.Context) {
		var req struct {
			PropertyID        string `json:"property_id" binding:"required"`
			TenantEmail       string `json:"tenant_email" binding:"required"`
			Message           string `json:"message"`
			SourceType        string `json:"source_type"`
			PlatformID        string `json:"platform_id"`
			ExternalInquiryID string `json:"external_inquiry_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "property_id and tenant_email are required"})
			return
		}
		propertyID, err := utils.ParseSixID(req.PropertyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid property ID format"})
			return
		}
		sourceType := models.InquirySource(req.SourceType)
		if req.SourceType == "" {
			sourceType = models.SourceEmail
		}

		inquiry, err := inquirySvc.CreateInquiry(c.Request.Context(), services.CreateInquiryParams{
			PropertyID:        propertyID,
			PlatformID:        req.PlatformID,
			ExternalInquiryID: req.ExternalInquiryID,
			TenantEmail:       req.TenantEmail,
			Message:           req.Message,
			SourceType:        sourceType,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": inquiry})
	})

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}

		case "getTestEmail":
			var args []string // ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			redisKey := fmt.Sprintf("mockmail:%s:%s", args[1], args[0])

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			var mailJSON string
			found := false
			for i := 0; i < 10; i++ {
				var getErr error
				mailJSON, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", redisKey)})
				return
			}

			var mailData map[string]interface{}
			if err := json.Unmarshal([]byte(mailJSON), &mailData); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": mailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

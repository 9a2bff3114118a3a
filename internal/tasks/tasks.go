package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/email"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

const (
	TypeEmailDelivery = "email:deliver"
	TypeOfferIssue    = "booking:offer:issue"
	TypePhotoProcess  = "photo:process"
	TypeTokenSweep    = "booking:token:sweep"
)

// sweptTokenRetention keeps spent and expired tokens around long enough
// for support lookups before the sweep removes them.
const sweptTokenRetention = 30 * 24 * time.Hour

// NewClient creates an asynq client reusing the redis connection options.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// TaskProcessor holds the dependencies task handlers need.
type TaskProcessor struct {
	cfg             *config.Config
	db              *mongo.Database
	emailSender     email.Sender
	templateService services.ITemplateService
	propertyService services.IPropertyService
	bookingService  services.IBookingService
	s3Client        *s3.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	db *mongo.Database,
	emailSender email.Sender,
	templateService services.ITemplateService,
	propertyService services.IPropertyService,
	bookingService services.IBookingService,
	s3Client *s3.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:             cfg,
		db:              db,
		emailSender:     emailSender,
		templateService: templateService,
		propertyService: propertyService,
		bookingService:  bookingService,
		s3Client:        s3Client,
	}
}

// SetupServer configures and starts the asynq server. The caller owns
// Shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) *asynq.Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeOfferIssue, processor.HandleOfferIssueTask)
	mux.HandleFunc(TypePhotoProcess, processor.HandlePhotoProcessTask)
	mux.HandleFunc(TypeTokenSweep, processor.HandleTokenSweepTask)

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}
	return srv
}

// SetupScheduler registers and starts the recurring jobs. The caller owns
// Shutdown.
func SetupScheduler(rdb *redis.Client) *asynq.Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		nil,
	)

	if _, err := scheduler.Register("@every 24h", asynq.NewTask(TypeTokenSweep, nil), asynq.Queue("low")); err != nil {
		log.Fatalf("Could not register token sweep job: %v", err)
	}

	if err := scheduler.Start(); err != nil {
		log.Fatalf("Could not start Asynq scheduler: %v", err)
	}
	return scheduler
}

// EmailTaskPayload is the queued form of one outbound notification.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = "en-US"
	}

	tmpl, err := p.templateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("message template not found: %w", asynq.SkipRetry)
	}

	subject, err := renderTemplate("subject", tmpl.Subject, payload.Data)
	if err != nil {
		return fmt.Errorf("bad subject template %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}
	body, err := renderTemplate("body", tmpl.Body, payload.Data)
	if err != nil {
		return fmt.Errorf("bad body template %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", payload.To)
	fmt.Fprintf(&sb, "From: %s\r\n", p.cfg.SmtpFromAddress)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.TemplateID, subject, []byte(sb.String())); err != nil {
		return err
	}
	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

func renderTemplate(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OfferIssuePayload names the inquiry that just qualified and should
// receive its first slot-offer batch.
type OfferIssuePayload struct {
	InquiryID string `json:"inquiry_id"`
}

// HandleOfferIssueTask issues the automatic slot-offer batch for a newly
// qualified inquiry. If the inquiry has already moved on (a manager issued
// offers by hand, or overrode the status) the task is dropped; a transient
// lack of open slots is retried so a schedule added later still produces
// the batch.
func (p *TaskProcessor) HandleOfferIssueTask(ctx context.Context, t *asynq.Task) error {
	var payload OfferIssuePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal offer task payload: %v: %w", err, asynq.SkipRetry)
	}
	inquiryID, err := utils.ParseSixID(payload.InquiryID)
	if err != nil {
		return fmt.Errorf("invalid inquiry ID in payload: %w", asynq.SkipRetry)
	}

	offerType := models.AppointmentType(p.cfg.DefaultOfferType)
	if !offerType.Valid() {
		offerType = models.AppointmentTour
	}
	_, err = p.bookingService.IssueOffers(ctx, inquiryID, offerType, 0)
	if err != nil {
		var stateErr *apperr.StateError
		if errors.As(err, &stateErr) {
			log.Printf("Inquiry %s is %s, not qualified; dropping automatic offer.", payload.InquiryID, stateErr.CurrentStatus)
			return fmt.Errorf("inquiry no longer qualified: %w", asynq.SkipRetry)
		}
		return err
	}
	log.Printf("Offer task processed: InquiryID=%s", payload.InquiryID)
	return nil
}

// PhotoTaskPayload identifies an uploaded property photo awaiting
// normalization.
type PhotoTaskPayload struct {
	S3Key      string `json:"s3_key"`
	PropertyID string `json:"property_id"`
}

func (p *TaskProcessor) HandlePhotoProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload PhotoTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal photo task payload: %v: %w", err, asynq.SkipRetry)
	}

	propertyID, err := utils.ParseSixID(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property ID in payload: %w", asynq.SkipRetry)
	}

	obj, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, upload likely failed.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download photo from S3: %w", err)
	}
	defer obj.Body.Close()

	photoData, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("failed to read photo data: %w", err)
	}

	maxSizeBytes := int64(p.cfg.PhotoMaxSizeMB) * 1024 * 1024
	if int64(len(photoData)) > maxSizeBytes {
		log.Printf("Photo %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(photoData), maxSizeBytes)
		return fmt.Errorf("photo exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(photoData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt photo: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.PhotoMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		log.Printf("Resizing photo %s (%s, %dx%d)", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized photo: %w", err)
		}
		photoData = buf.Bytes()

		_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.AwsS3Bucket),
			Key:         aws.String(payload.S3Key),
			Body:        bytes.NewReader(photoData),
			ContentType: aws.String("image/jpeg"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload processed photo: %w", err)
		}
	}

	if err := p.propertyService.AddPhotoToProperty(ctx, propertyID, payload.S3Key); err != nil {
		return fmt.Errorf("failed to attach photo to property: %w", err)
	}
	log.Printf("Photo task processed: Key=%s, PropertyID=%s", payload.S3Key, payload.PropertyID)
	return nil
}

// HandleTokenSweepTask deletes booking tokens that are both dead (expired,
// consumed, or consumed-failed) and past the retention window. Expiry
// itself is enforced at read time; this only trims storage.
func (p *TaskProcessor) HandleTokenSweepTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-sweptTokenRetention)
	res, err := p.db.Collection("booking_tokens").DeleteMany(ctx, bson.M{
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": cutoff}},
			{"consumed": true, "created_at": bson.M{"$lt": cutoff}},
			{"consumed_failed": true, "created_at": bson.M{"$lt": cutoff}},
		},
	})
	if err != nil {
		return fmt.Errorf("token sweep failed: %w", err)
	}
	if res.DeletedCount > 0 {
		log.Printf("Token sweep removed %d dead tokens.", res.DeletedCount)
	}
	return nil
}

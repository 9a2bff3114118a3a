package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/gahimbaref/Rentema-sub002/internal/config"
)

// IS3Storage covers the S3 operations needed for property photos.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, managerID, propertyID, filename, contentType string) (string, string, error)
	Client() *s3.Client
}

type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service using static credentials
// from config.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

// Client exposes the underlying S3 client for background photo processing.
func (s *s3Storage) Client() *s3.Client {
	return s.s3Client
}

// GeneratePresignedPutURL creates a pre-signed upload URL for a property
// photo and returns it with the generated object key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, managerID, propertyID, filename, contentType string) (string, string, error) {
	// Keep only the base name so a client-supplied path cannot shape the key.
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	objectKey := fmt.Sprintf("photos/%s/%s/%s_%s", managerID, propertyID, uuid.NewString(), filename)

	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}
	return presignedReq.URL, objectKey, nil
}

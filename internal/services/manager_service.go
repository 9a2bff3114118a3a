package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gahimbaref/Rentema-sub002/internal/apperr"
	"github.com/gahimbaref/Rentema-sub002/internal/auth"
	"github.com/gahimbaref/Rentema-sub002/internal/config"
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IManagerService handles manager accounts and console login.
type IManagerService interface {
	CreateManager(ctx context.Context, email, password, name string, isAdmin bool) (*models.Manager, error)
	FindManagerByID(ctx context.Context, managerID utils.SixID) (*models.Manager, error)
	Login(ctx context.Context, email, password string) (string, *models.Manager, error)
}

const managersCollection = "managers"

var ErrInvalidCredentials = errors.New("invalid email or password")

type managerService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewManagerService creates a new manager service.
func NewManagerService(database *mongo.Database, cfg *config.Config) IManagerService {
	return &managerService{db: database, cfg: cfg}
}

func (s *managerService) CreateManager(ctx context.Context, email, password, name string, isAdmin bool) (*models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.NewValidation("invalid email %q", email)
	}
	if len(password) < 8 {
		return nil, apperr.NewValidation("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	count, err := s.db.Collection(managersCollection).CountDocuments(ctx, bson.M{"email": email, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking manager email: %w", err)
	}
	if count > 0 {
		return nil, apperr.NewValidation("email %s is already registered", email)
	}

	now := time.Now().UTC()
	manager := &models.Manager{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = db.Try(func() error {
		manager.Base = models.NewBase()
		_, err := s.db.Collection(managersCollection).InsertOne(ctx, manager)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}
	return manager, nil
}

func (s *managerService) FindManagerByID(ctx context.Context, managerID utils.SixID) (*models.Manager, error) {
	var manager models.Manager
	err := s.db.Collection(managersCollection).
		FindOne(ctx, bson.M{"_id": managerID, "deleted": false}).Decode(&manager)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding manager %s: %w", managerID, err)
	}
	return &manager, nil
}

// Login verifies credentials and returns a signed JWT for the console.
func (s *managerService) Login(ctx context.Context, email, password string) (string, *models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var manager models.Manager
	err := s.db.Collection(managersCollection).
		FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&manager)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("error finding manager by email: %w", err)
	}

	if !auth.CheckPassword(manager.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(manager.ID, manager.IsAdmin, s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return "", nil, err
	}
	return token, &manager, nil
}

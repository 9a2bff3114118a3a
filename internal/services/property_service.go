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
	"github.com/gahimbaref/Rentema-sub002/internal/db"
	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// IPropertyService defines property CRUD operations.
type IPropertyService interface {
	CreateProperty(ctx context.Context, managerID utils.SixID, name, address string, rent *models.Money) (*models.Property, error)
	FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error)
	ListProperties(ctx context.Context, managerID utils.SixID, includeArchived bool) ([]models.Property, error)
	UpdateProperty(ctx context.Context, propertyID, managerID utils.SixID, updates map[string]interface{}) (*models.Property, error)
	ArchiveProperty(ctx context.Context, propertyID, managerID utils.SixID) error
	DeleteProperty(ctx context.Context, propertyID, managerID utils.SixID) error
	AddPhotoToProperty(ctx context.Context, propertyID utils.SixID, photoKey string) error
}

const propertiesCollection = "properties"

type propertyService struct {
	db *mongo.Database
}

// NewPropertyService creates a new property service.
func NewPropertyService(db *mongo.Database) IPropertyService {
	return &propertyService{db: db}
}

func (s *propertyService) CreateProperty(ctx context.Context, managerID utils.SixID, name, address string, rent *models.Money) (*models.Property, error) {
	if name == "" {
		return nil, apperr.NewValidation("property name is required")
	}

	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	var property *models.Property
	operation := func() error {
		property = &models.Property{
			ID:        utils.NewSixID(),
			ManagerID: managerID,
			Name:      name,
			Address:   address,
			Rent:      rent,
			Photos:    []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, insertErr := collection.InsertOne(ctx, property)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert property for manager %s: %w", managerID, err)
	}
	return property, nil
}

func (s *propertyService) FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error) {
	var property models.Property
	filter := bson.M{"_id": propertyID, "deleted": false}
	err := s.db.Collection(propertiesCollection).FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding property %s: %w", propertyID, err)
	}
	return &property, nil
}

func (s *propertyService) ListProperties(ctx context.Context, managerID utils.SixID, includeArchived bool) ([]models.Property, error) {
	filter := bson.M{"manager_id": managerID, "deleted": false}
	if !includeArchived {
		filter["archived"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(propertiesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	var properties []models.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}

func (s *propertyService) UpdateProperty(ctx context.Context, propertyID, managerID utils.SixID, updates map[string]interface{}) (*models.Property, error) {
	allowed := bson.M{}
	for key, value := range updates {
		switch key {
		case "name", "address", "rent":
			allowed[key] = value
		default:
			return nil, apperr.NewValidation("field %q cannot be updated", key)
		}
	}
	if len(allowed) == 0 {
		return nil, apperr.NewValidation("no valid fields provided for update")
	}
	allowed["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": propertyID, "manager_id": managerID, "deleted": false}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Property
	err := s.db.Collection(propertiesCollection).FindOneAndUpdate(ctx, filter, bson.M{"$set": allowed}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update property %s: %w", propertyID, err)
	}
	return &updated, nil
}

// ArchiveProperty hides the property from day-to-day views. Its inquiries
// are never deleted; archival hides them implicitly.
func (s *propertyService) ArchiveProperty(ctx context.Context, propertyID, managerID utils.SixID) error {
	return s.setFlag(ctx, propertyID, managerID, bson.M{"archived": true})
}

func (s *propertyService) DeleteProperty(ctx context.Context, propertyID, managerID utils.SixID) error {
	return s.setFlag(ctx, propertyID, managerID, bson.M{"deleted": true})
}

func (s *propertyService) setFlag(ctx context.Context, propertyID, managerID utils.SixID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	filter := bson.M{"_id": propertyID, "manager_id": managerID, "deleted": false}
	res, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update property %s: %w", propertyID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *propertyService) AddPhotoToProperty(ctx context.Context, propertyID utils.SixID, photoKey string) error {
	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{
		"$addToSet": bson.M{"photos": photoKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add photo to property %s: %w", propertyID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

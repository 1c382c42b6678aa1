package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/mongo/command"
	"github.com/CiviTrack/civitrack-back/services/mongo/query"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

const staffCollection = "staff"

// StaffStore is the Mongo-backed staff directory.
type StaffStore struct {
	*MongoService
}

func NewStaffStore(svc *MongoService) *StaffStore {
	return &StaffStore{MongoService: svc}
}

func (s *StaffStore) collection() *mongo.Collection {
	return s.GetCollection(staffCollection)
}

func (s *StaffStore) Insert(ctx context.Context, st *models.Staff) error {
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	st.Specialization = models.NormalizeCategory(st.Specialization)
	for i, extra := range st.AdditionalCategories {
		st.AdditionalCategories[i] = models.NormalizeCategory(extra)
	}

	res, err := command.InsertOne(ctx, s.collection(), st)
	if err != nil {
		return fmt.Errorf("failed to insert staff: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		st.ID = oid
	}
	return nil
}

func (s *StaffStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Staff, error) {
	var st models.Staff
	if err := query.FindByID(ctx, s.collection(), id, &st); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return &st, nil
}

func (s *StaffStore) ListActive(ctx context.Context) ([]*models.Staff, error) {
	return s.list(ctx, bson.M{"is_active": true})
}

func (s *StaffStore) List(ctx context.Context) ([]*models.Staff, error) {
	return s.list(ctx, bson.M{})
}

func (s *StaffStore) list(ctx context.Context, filter bson.M) ([]*models.Staff, error) {
	var staff []*models.Staff
	if err := query.FindMany(ctx, s.collection(), filter, &staff); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

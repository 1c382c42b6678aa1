package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/mongo/command"
	"github.com/CiviTrack/civitrack-back/services/mongo/query"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

const galleryCollection = "gallery_submissions"

// GalleryStore is the Mongo-backed gallery submission store. Like the report
// store, transitions guard on the stored status inside the update filter.
type GalleryStore struct {
	*MongoService
}

func NewGalleryStore(svc *MongoService) *GalleryStore {
	return &GalleryStore{MongoService: svc}
}

func (s *GalleryStore) collection() *mongo.Collection {
	return s.GetCollection(galleryCollection)
}

func (s *GalleryStore) Insert(ctx context.Context, g *models.GallerySubmission) error {
	res, err := command.InsertOne(ctx, s.collection(), g)
	if err != nil {
		return fmt.Errorf("failed to insert gallery submission: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		g.ID = oid
	}
	return nil
}

func (s *GalleryStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GallerySubmission, error) {
	var g models.GallerySubmission
	if err := query.FindByID(ctx, s.collection(), id, &g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gallery submission: %w", err)
	}
	return &g, nil
}

func (s *GalleryStore) ApplyTransition(ctx context.Context, id primitive.ObjectID, expected models.GalleryStatus, ch workflow.GalleryChange) (*models.GallerySubmission, error) {
	u := command.NewUpdateBuilder()
	if ch.Status != nil {
		u.Set("status", *ch.Status)
	}
	if ch.Featured != nil {
		u.Set("featured", *ch.Featured)
	}
	if ch.AdminNotes != nil {
		u.Set("admin_notes", *ch.AdminNotes)
	}
	if ch.RejectionReason != nil {
		u.Set("rejection_reason", *ch.RejectionReason)
	}
	if ch.ReviewedAt != nil {
		u.Set("reviewed_at", *ch.ReviewedAt)
	}
	if u.Empty() {
		return s.GetByID(ctx, id)
	}

	filter := bson.M{"_id": id, "status": expected}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.GallerySubmission
	err := s.collection().FindOneAndUpdate(ctx, filter, u.Build(), opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to apply gallery transition: %w", err)
	}

	exists, exErr := query.Exists(ctx, s.collection(), bson.M{"_id": id})
	if exErr != nil {
		return nil, fmt.Errorf("failed to check gallery submission existence: %w", exErr)
	}
	if exists {
		return nil, workflow.ErrConflict
	}
	return nil, workflow.ErrNotFound
}

func (s *GalleryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := command.DeleteByID(ctx, s.collection(), id)
	if err != nil {
		return fmt.Errorf("failed to delete gallery submission: %w", err)
	}
	if res.DeletedCount == 0 {
		return workflow.ErrNotFound
	}
	return nil
}

func (s *GalleryStore) List(ctx context.Context, status models.GalleryStatus, reportID *primitive.ObjectID) ([]*models.GallerySubmission, error) {
	b := query.NewBuilder()
	if status != "" {
		b.Where("status", status)
	}
	if reportID != nil {
		b.Where("report_id", *reportID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var subs []*models.GallerySubmission
	if err := query.FindMany(ctx, s.collection(), b.Build(), &subs, opts); err != nil {
		return nil, fmt.Errorf("failed to list gallery submissions: %w", err)
	}
	return subs, nil
}

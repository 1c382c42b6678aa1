package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/mongo/command"
	"github.com/CiviTrack/civitrack-back/services/mongo/query"
	"github.com/CiviTrack/civitrack-back/services/views"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

const reportsCollection = "reports"

// ReportStore is the Mongo-backed report store. The compare-and-set guard is
// expressed as part of the FindOneAndUpdate filter, so the status check and
// the mutation are a single atomic operation on the server.
type ReportStore struct {
	*MongoService
}

func NewReportStore(svc *MongoService) *ReportStore {
	return &ReportStore{MongoService: svc}
}

func (s *ReportStore) collection() *mongo.Collection {
	return s.GetCollection(reportsCollection)
}

func (s *ReportStore) Insert(ctx context.Context, r *models.Report) error {
	res, err := command.InsertOne(ctx, s.collection(), r)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}

func (s *ReportStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var r models.Report
	if err := query.FindByID(ctx, s.collection(), id, &r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &r, nil
}

func (s *ReportStore) ApplyTransition(ctx context.Context, id primitive.ObjectID, guard workflow.Guard, ch workflow.ReportChange) (*models.Report, error) {
	filter := bson.M{"_id": id, "status": guard.Status}
	if guard.Review != nil {
		filter["review_state"] = *guard.Review
	}
	if guard.ProgressAtMost != nil {
		filter["progress"] = bson.M{"$lte": *guard.ProgressAtMost}
	}

	update := buildReportUpdate(ch)
	if update.Empty() {
		return s.GetByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Report
	err := s.collection().FindOneAndUpdate(ctx, filter, update.Build(), opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	// Guard failed or record gone; tell the caller which.
	exists, exErr := query.Exists(ctx, s.collection(), bson.M{"_id": id})
	if exErr != nil {
		return nil, fmt.Errorf("failed to check report existence: %w", exErr)
	}
	if exists {
		return nil, workflow.ErrConflict
	}
	return nil, workflow.ErrNotFound
}

func buildReportUpdate(ch workflow.ReportChange) *command.UpdateBuilder {
	u := command.NewUpdateBuilder()
	if ch.Status != nil {
		u.Set("status", *ch.Status)
	}
	if ch.Progress != nil {
		u.Set("progress", *ch.Progress)
	}
	if ch.ReviewState != nil {
		u.Set("review_state", *ch.ReviewState)
	}
	if ch.AssignedStaffID != nil {
		u.Set("assigned_staff_id", *ch.AssignedStaffID)
	}
	if ch.ClearAssignee {
		u.Unset("assigned_staff_id")
	}
	if ch.DueDate != nil {
		u.Set("due_date", *ch.DueDate)
	}
	if ch.AssignmentNotes != nil {
		u.Set("assignment_notes", *ch.AssignmentNotes)
	}
	if ch.CompletionNotes != nil {
		u.Set("completion_notes", *ch.CompletionNotes)
	}
	if ch.AdminNotes != nil {
		u.Set("admin_notes", *ch.AdminNotes)
	}
	if ch.RejectionReason != nil {
		u.Set("rejection_reason", *ch.RejectionReason)
	}
	if ch.AssignedAt != nil {
		u.Set("assigned_at", *ch.AssignedAt)
	}
	if ch.CompletedAt != nil {
		u.Set("completed_at", *ch.CompletedAt)
	}
	if ch.ReviewedAt != nil {
		u.Set("reviewed_at", *ch.ReviewedAt)
	}
	if ch.RejectedAt != nil {
		u.Set("rejected_at", *ch.RejectedAt)
	}
	if ch.Append != nil {
		u.Push("progress_updates", *ch.Append)
	}
	return u
}

func (s *ReportStore) List(ctx context.Context, spec views.FilterSpec) ([]*models.Report, error) {
	filter, opts := spec.Query()
	var reports []*models.Report
	if err := query.FindMany(ctx, s.collection(), filter, &reports, opts); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *ReportStore) CountOpenByStaff(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"status":            bson.M{"$in": []models.ReportStatus{models.StatusAssigned, models.StatusInProgress}},
			"assigned_staff_id": bson.M{"$exists": true},
		}},
		{"$group": bson.M{"_id": "$assigned_staff_id", "count": bson.M{"$sum": 1}}},
	}

	var rows []struct {
		StaffID primitive.ObjectID `bson:"_id"`
		Count   int                `bson:"count"`
	}
	if err := query.Aggregate(ctx, s.collection(), pipeline, &rows); err != nil {
		return nil, fmt.Errorf("failed to count open assignments: %w", err)
	}

	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.StaffID] = row.Count
	}
	return counts, nil
}

// EnsureIndexes creates the indexes the view filters and the matcher lean on.
func (s *ReportStore) EnsureIndexes(ctx context.Context) error {
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.collection().Indexes().CreateMany(ictx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "review_state", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_staff_id", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create report indexes: %w", err)
	}
	return nil
}

// Package memstore provides in-memory implementations of the workflow store
// interfaces. Tests run against it, and `serve --memory` uses it to bring the
// API up without Mongo. Mutations take a write lock, so readers always see a
// record before or after a transition, never mid-write.
package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/views"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

type Store struct {
	mu      sync.RWMutex
	reports map[primitive.ObjectID]*models.Report
	staff   map[primitive.ObjectID]*models.Staff
	gallery map[primitive.ObjectID]*models.GallerySubmission
}

func New() *Store {
	return &Store{
		reports: make(map[primitive.ObjectID]*models.Report),
		staff:   make(map[primitive.ObjectID]*models.Staff),
		gallery: make(map[primitive.ObjectID]*models.GallerySubmission),
	}
}

// Reports returns the report-store view of the store.
func (s *Store) Reports() workflow.ReportStore { return (*reportStore)(s) }

// Staff returns the staff-directory view of the store.
func (s *Store) Staff() workflow.StaffStore { return (*staffStore)(s) }

// Gallery returns the gallery-store view of the store.
func (s *Store) Gallery() workflow.GalleryStore { return (*galleryStore)(s) }

func copyReport(r *models.Report) *models.Report {
	cp := *r
	cp.ProgressUpdates = append([]models.ProgressUpdate(nil), r.ProgressUpdates...)
	if r.AssignedStaffID != nil {
		id := *r.AssignedStaffID
		cp.AssignedStaffID = &id
	}
	return &cp
}

func copyStaff(st *models.Staff) *models.Staff {
	cp := *st
	cp.AdditionalCategories = append([]string(nil), st.AdditionalCategories...)
	return &cp
}

func copyGallery(g *models.GallerySubmission) *models.GallerySubmission {
	cp := *g
	return &cp
}

type reportStore Store

func (s *reportStore) Insert(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.reports[r.ID] = copyReport(r)
	return nil
}

func (s *reportStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return copyReport(r), nil
}

func (s *reportStore) ApplyTransition(_ context.Context, id primitive.ObjectID, guard workflow.Guard, ch workflow.ReportChange) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	if r.Status != guard.Status {
		return nil, workflow.ErrConflict
	}
	if guard.Review != nil && r.ReviewState != *guard.Review {
		return nil, workflow.ErrConflict
	}
	if guard.ProgressAtMost != nil && r.Progress > *guard.ProgressAtMost {
		return nil, workflow.ErrConflict
	}

	if ch.Status != nil {
		r.Status = *ch.Status
	}
	if ch.Progress != nil {
		r.Progress = *ch.Progress
	}
	if ch.ReviewState != nil {
		r.ReviewState = *ch.ReviewState
	}
	if ch.AssignedStaffID != nil {
		id := *ch.AssignedStaffID
		r.AssignedStaffID = &id
	}
	if ch.ClearAssignee {
		r.AssignedStaffID = nil
	}
	if ch.DueDate != nil {
		r.DueDate = ch.DueDate
	}
	if ch.AssignmentNotes != nil {
		r.AssignmentNotes = *ch.AssignmentNotes
	}
	if ch.CompletionNotes != nil {
		r.CompletionNotes = *ch.CompletionNotes
	}
	if ch.AdminNotes != nil {
		r.AdminNotes = *ch.AdminNotes
	}
	if ch.RejectionReason != nil {
		r.RejectionReason = *ch.RejectionReason
	}
	if ch.AssignedAt != nil {
		r.AssignedAt = ch.AssignedAt
	}
	if ch.CompletedAt != nil {
		r.CompletedAt = ch.CompletedAt
	}
	if ch.ReviewedAt != nil {
		r.ReviewedAt = ch.ReviewedAt
	}
	if ch.RejectedAt != nil {
		r.RejectedAt = ch.RejectedAt
	}
	if ch.Append != nil {
		r.ProgressUpdates = append(r.ProgressUpdates, *ch.Append)
	}
	return copyReport(r), nil
}

func (s *reportStore) List(_ context.Context, spec views.FilterSpec) ([]*models.Report, error) {
	s.mu.RLock()
	all := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		all = append(all, copyReport(r))
	}
	s.mu.RUnlock()
	return spec.Apply(all), nil
}

func (s *reportStore) CountOpenByStaff(_ context.Context) (map[primitive.ObjectID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[primitive.ObjectID]int)
	for _, r := range s.reports {
		if r.AssignedStaffID == nil {
			continue
		}
		if r.Status == models.StatusAssigned || r.Status == models.StatusInProgress {
			counts[*r.AssignedStaffID]++
		}
	}
	return counts, nil
}

type staffStore Store

func (s *staffStore) Insert(_ context.Context, st *models.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID.IsZero() {
		st.ID = primitive.NewObjectID()
	}
	st.Specialization = models.NormalizeCategory(st.Specialization)
	for i, extra := range st.AdditionalCategories {
		st.AdditionalCategories[i] = models.NormalizeCategory(extra)
	}
	s.staff[st.ID] = copyStaff(st)
	return nil
}

func (s *staffStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staff[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return copyStaff(st), nil
}

func (s *staffStore) ListActive(_ context.Context) ([]*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Staff, 0, len(s.staff))
	for _, st := range s.staff {
		if st.IsActive {
			out = append(out, copyStaff(st))
		}
	}
	return out, nil
}

func (s *staffStore) List(_ context.Context) ([]*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Staff, 0, len(s.staff))
	for _, st := range s.staff {
		out = append(out, copyStaff(st))
	}
	return out, nil
}

type galleryStore Store

func (s *galleryStore) Insert(_ context.Context, g *models.GallerySubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	s.gallery[g.ID] = copyGallery(g)
	return nil
}

func (s *galleryStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.GallerySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gallery[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return copyGallery(g), nil
}

func (s *galleryStore) ApplyTransition(_ context.Context, id primitive.ObjectID, expected models.GalleryStatus, ch workflow.GalleryChange) (*models.GallerySubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gallery[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	if g.Status != expected {
		return nil, workflow.ErrConflict
	}

	if ch.Status != nil {
		g.Status = *ch.Status
	}
	if ch.Featured != nil {
		g.Featured = *ch.Featured
	}
	if ch.AdminNotes != nil {
		g.AdminNotes = *ch.AdminNotes
	}
	if ch.RejectionReason != nil {
		g.RejectionReason = *ch.RejectionReason
	}
	if ch.ReviewedAt != nil {
		g.ReviewedAt = ch.ReviewedAt
	}
	return copyGallery(g), nil
}

func (s *galleryStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gallery[id]; !ok {
		return workflow.ErrNotFound
	}
	delete(s.gallery, id)
	return nil
}

func (s *galleryStore) List(_ context.Context, status models.GalleryStatus, reportID *primitive.ObjectID) ([]*models.GallerySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.GallerySubmission, 0, len(s.gallery))
	for _, g := range s.gallery {
		if status != "" && g.Status != status {
			continue
		}
		if reportID != nil && g.ReportID != *reportID {
			continue
		}
		out = append(out, copyGallery(g))
	}
	return out, nil
}

// Package views is the read-only query layer over the report store. Every
// presentation surface derives its tabs and searches from these filters
// instead of recomputing them locally, so the definitions live in exactly
// one place.
package views

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/mongo/query"
)

// Named identifies one of the fixed result sets.
type Named string

const (
	// All applies no status predicate.
	All Named = ""
	// PendingAssignment holds reports no staff member has been routed to.
	PendingAssignment Named = "pending_assignment"
	// InProgress holds assigned or in-progress reports not yet queued for review.
	InProgress Named = "in_progress"
	// NeedsReview holds completed reports awaiting an admin decision.
	NeedsReview Named = "needs_review"
	// CompletedApproved holds terminally approved completions.
	CompletedApproved Named = "completed_approved"
)

func (n Named) IsValid() bool {
	switch n {
	case All, PendingAssignment, InProgress, NeedsReview, CompletedApproved:
		return true
	default:
		return false
	}
}

// searchFields are the report fields free-text search covers.
var searchFields = []string{"title", "description", "location.address", "reporter_name"}

// FilterSpec composes a named filter with free-text search, category and
// priority narrowing, and a stable sort. Evaluation is side-effect-free and
// safe to repeat on every query.
type FilterSpec struct {
	Name     Named
	Search   string
	Category string
	Priority models.Priority
	// OldestFirst flips the default newest-first ordering by created_at.
	OldestFirst bool
	Limit       int64
	Skip        int64
}

func (s FilterSpec) Validate() error {
	if !s.Name.IsValid() {
		return fmt.Errorf("unknown view filter %q", s.Name)
	}
	if s.Category != "" && !models.Category(models.NormalizeCategory(s.Category)).IsValid() {
		return fmt.Errorf("unknown category %q", s.Category)
	}
	if s.Priority != "" && !s.Priority.IsValid() {
		return fmt.Errorf("unknown priority %q", s.Priority)
	}
	return nil
}

// Query translates the spec into a Mongo filter and find options.
func (s FilterSpec) Query() (bson.M, *options.FindOptions) {
	b := query.NewBuilder()

	switch s.Name {
	case PendingAssignment:
		b.Where("status", models.StatusPending)
	case InProgress:
		b.WhereIn("status", []interface{}{models.StatusAssigned, models.StatusInProgress}).
			WhereNot("review_state", models.ReviewAwaiting)
	case NeedsReview:
		b.Where("status", models.StatusCompleted).
			Where("review_state", models.ReviewAwaiting)
	case CompletedApproved:
		b.Where("status", models.StatusCompleted).
			Where("review_state", models.ReviewApproved)
	}

	if s.Category != "" {
		b.Where("category", models.NormalizeCategory(s.Category))
	}
	if s.Priority != "" {
		b.Where("priority", s.Priority)
	}
	if s.Search != "" {
		b.WhereAnyRegex(searchFields, s.Search)
	}

	sortDir := -1
	if s.OldestFirst {
		sortDir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: sortDir}})
	if s.Limit > 0 {
		opts.SetLimit(s.Limit)
	}
	if s.Skip > 0 {
		opts.SetSkip(s.Skip)
	}
	return b.Build(), opts
}

// Matches evaluates the spec against one report in memory. It is the exact
// in-process counterpart of Query and what the memory store uses.
func (s FilterSpec) Matches(r *models.Report) bool {
	switch s.Name {
	case PendingAssignment:
		if r.Status != models.StatusPending {
			return false
		}
	case InProgress:
		if r.Status != models.StatusAssigned && r.Status != models.StatusInProgress {
			return false
		}
		if r.ReviewState == models.ReviewAwaiting {
			return false
		}
	case NeedsReview:
		if !r.AwaitingReview() {
			return false
		}
	case CompletedApproved:
		if r.Status != models.StatusCompleted || r.ReviewState != models.ReviewApproved {
			return false
		}
	}

	if s.Category != "" && string(r.Category) != models.NormalizeCategory(s.Category) {
		return false
	}
	if s.Priority != "" && r.Priority != s.Priority {
		return false
	}
	if s.Search != "" {
		needle := strings.ToLower(s.Search)
		haystacks := []string{r.Title, r.Description, r.Location.Address, r.ReporterName}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply filters, sorts, and paginates reports in memory per the spec.
func (s FilterSpec) Apply(reports []*models.Report) []*models.Report {
	out := make([]*models.Report, 0, len(reports))
	for _, r := range reports {
		if s.Matches(r) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if s.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if s.Skip > 0 {
		if s.Skip >= int64(len(out)) {
			return nil
		}
		out = out[s.Skip:]
	}
	if s.Limit > 0 && int64(len(out)) > s.Limit {
		out = out[:s.Limit]
	}
	return out
}

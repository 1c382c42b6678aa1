package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusAssigned   ReportStatus = "assigned"
	StatusInProgress ReportStatus = "in_progress"
	StatusCompleted  ReportStatus = "completed"
	StatusRejected   ReportStatus = "rejected"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// ReviewState is the single source of truth for the admin review outcome of a
// completed report. A report is awaiting_review iff it is completed and no
// decision has been recorded for the current completion cycle.
type ReviewState string

const (
	ReviewNotApplicable ReviewState = "not_applicable"
	ReviewAwaiting      ReviewState = "awaiting_review"
	ReviewApproved      ReviewState = "approved"
	ReviewRejected      ReviewState = "rejected"
)

func (r ReviewState) IsValid() bool {
	switch r {
	case ReviewNotApplicable, ReviewAwaiting, ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryPothole     Category = "pothole"
	CategoryRoadRepair  Category = "road_repair"
	CategoryStreetlight Category = "streetlight"
	CategoryWaterSupply Category = "water_supply"
	CategoryDrainage    Category = "drainage"
	CategorySanitation  Category = "sanitation"
	CategoryGarbage     Category = "garbage_collection"
	CategoryParks       Category = "park_maintenance"
	CategoryElectrical  Category = "electrical"
	CategoryOther       Category = "other"
)

var AllCategories = []Category{
	CategoryPothole, CategoryRoadRepair, CategoryStreetlight,
	CategoryWaterSupply, CategoryDrainage, CategorySanitation,
	CategoryGarbage, CategoryParks, CategoryElectrical, CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory lower-cases a category string and collapses whitespace to
// underscores so "Road Repair" and "road_repair" compare equal.
func NormalizeCategory(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "_")
}

type Location struct {
	Address   string   `bson:"address" json:"address"`
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// ProgressUpdate is one entry of a report's append-only audit trail. Entries
// are never mutated or reordered after insertion.
type ProgressUpdate struct {
	Percentage  int       `bson:"percentage" json:"percentage"`
	Description string    `bson:"description" json:"description"`
	Actor       string    `bson:"actor" json:"actor"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

type Report struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title           string              `bson:"title" json:"title"`
	Description     string              `bson:"description" json:"description"`
	Category        Category            `bson:"category" json:"category"`
	Location        Location            `bson:"location" json:"location"`
	Priority        Priority            `bson:"priority" json:"priority"`
	ReporterName    string              `bson:"reporter_name" json:"reporter_name"`
	Status          ReportStatus        `bson:"status" json:"status"`
	Progress        int                 `bson:"progress" json:"progress"`
	AssignedStaffID *primitive.ObjectID `bson:"assigned_staff_id,omitempty" json:"assigned_staff_id,omitempty"`
	ReviewState     ReviewState         `bson:"review_state" json:"review_state"`
	ProgressUpdates []ProgressUpdate    `bson:"progress_updates" json:"progress_updates"`
	AssignmentNotes string              `bson:"assignment_notes,omitempty" json:"assignment_notes,omitempty"`
	CompletionNotes string              `bson:"completion_notes,omitempty" json:"completion_notes,omitempty"`
	AdminNotes      string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	DueDate         *time.Time          `bson:"due_date,omitempty" json:"due_date,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	AssignedAt      *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	CompletedAt     *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	RejectedAt      *time.Time          `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
}

// IsTerminal reports whether no further lifecycle transition is legal: an
// approved completion, or a report forced into the rejected status.
func (r *Report) IsTerminal() bool {
	if r.Status == StatusRejected {
		return true
	}
	return r.Status == StatusCompleted && r.ReviewState == ReviewApproved
}

// AwaitingReview reports whether the report currently sits in the admin
// review queue.
func (r *Report) AwaitingReview() bool {
	return r.Status == StatusCompleted && r.ReviewState == ReviewAwaiting
}

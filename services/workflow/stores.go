package workflow

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/views"
)

// Guard is the caller's expected pre-state for a compare-and-set commit. The
// store must apply a change only if the stored status matches, and, when
// Review is non-nil, the stored review state matches too. ProgressAtMost,
// when non-nil, additionally requires the stored progress to not exceed the
// given value at commit time, so a racing update can never regress progress.
type Guard struct {
	Status         models.ReportStatus
	Review         *models.ReviewState
	ProgressAtMost *int
}

func reviewGuard(rs models.ReviewState) *models.ReviewState { return &rs }

// ReportChange is the set of field updates one transition commits. Nil fields
// are left untouched. Append, when set, adds exactly one entry to the
// report's audit trail in the same commit.
type ReportChange struct {
	Status          *models.ReportStatus
	Progress        *int
	ReviewState     *models.ReviewState
	AssignedStaffID *primitive.ObjectID
	ClearAssignee   bool
	DueDate         *time.Time
	AssignmentNotes *string
	CompletionNotes *string
	AdminNotes      *string
	RejectionReason *string
	AssignedAt      *time.Time
	CompletedAt     *time.Time
	ReviewedAt      *time.Time
	RejectedAt      *time.Time
	Append          *models.ProgressUpdate
}

// ReportStore is the canonical store of issue reports. ApplyTransition is the
// only mutation path for lifecycle state: it commits ch atomically iff the
// guard still holds, returning ErrConflict when the guard fails on a record
// that exists and ErrNotFound when it does not.
type ReportStore interface {
	Insert(ctx context.Context, r *models.Report) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, guard Guard, ch ReportChange) (*models.Report, error)
	List(ctx context.Context, spec views.FilterSpec) ([]*models.Report, error)
	// CountOpenByStaff returns, per staff id, the number of reports currently
	// assigned or in progress. Used for load-balanced ranking.
	CountOpenByStaff(ctx context.Context) (map[primitive.ObjectID]int, error)
}

// StaffStore is the staff directory.
type StaffStore interface {
	Insert(ctx context.Context, s *models.Staff) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Staff, error)
	ListActive(ctx context.Context) ([]*models.Staff, error)
	List(ctx context.Context) ([]*models.Staff, error)
}

// GalleryChange mirrors ReportChange for gallery submissions.
type GalleryChange struct {
	Status          *models.GalleryStatus
	Featured        *bool
	AdminNotes      *string
	RejectionReason *string
	ReviewedAt      *time.Time
}

type GalleryStore interface {
	Insert(ctx context.Context, g *models.GallerySubmission) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.GallerySubmission, error)
	// ApplyTransition commits ch iff the stored status equals expected.
	ApplyTransition(ctx context.Context, id primitive.ObjectID, expected models.GalleryStatus, ch GalleryChange) (*models.GallerySubmission, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, status models.GalleryStatus, reportID *primitive.ObjectID) ([]*models.GallerySubmission, error)
}

// EventPublisher receives one event per committed transition. Delivery to
// end users is owned by the external notification service; the engine only
// publishes and never fails a committed transition on publish errors.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Event describes a committed workflow transition.
type Event struct {
	Type      string    `json:"type"`
	ReportID  string    `json:"report_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

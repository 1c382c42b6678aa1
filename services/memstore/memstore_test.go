package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

func seedReport(t *testing.T, store *Store, status models.ReportStatus, review models.ReviewState, progress int) *models.Report {
	t.Helper()
	r := &models.Report{
		Title:       "Pothole on Main",
		Category:    models.CategoryPothole,
		Priority:    models.PriorityMedium,
		Status:      status,
		ReviewState: review,
		Progress:    progress,
	}
	require.NoError(t, store.Reports().Insert(context.Background(), r))
	return r
}

func TestApplyTransitionRejectsProgressRegression(t *testing.T) {
	store := New()
	ctx := context.Background()
	r := seedReport(t, store, models.StatusInProgress, models.ReviewNotApplicable, 80)

	// A writer that read the record before a faster update landed carries a
	// stale, lower percentage; the guard must refuse it at commit time.
	lower := 10
	_, err := store.Reports().ApplyTransition(ctx, r.ID,
		workflow.Guard{Status: models.StatusInProgress, ProgressAtMost: &lower},
		workflow.ReportChange{Progress: &lower})
	assert.ErrorIs(t, err, workflow.ErrConflict)

	current, err := store.Reports().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, current.Progress)
}

func TestApplyTransitionAllowsEqualProgress(t *testing.T) {
	store := New()
	ctx := context.Background()
	r := seedReport(t, store, models.StatusInProgress, models.ReviewNotApplicable, 60)

	same := 60
	updated, err := store.Reports().ApplyTransition(ctx, r.ID,
		workflow.Guard{Status: models.StatusInProgress, ProgressAtMost: &same},
		workflow.ReportChange{Progress: &same})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Progress)
}

func TestApplyTransitionGuardsReviewState(t *testing.T) {
	store := New()
	ctx := context.Background()
	r := seedReport(t, store, models.StatusCompleted, models.ReviewApproved, 100)

	// A caller whose pre-read saw awaiting_review must not overwrite the
	// review decision that landed in between.
	status := models.StatusPending
	awaiting := models.ReviewAwaiting
	_, err := store.Reports().ApplyTransition(ctx, r.ID,
		workflow.Guard{Status: models.StatusCompleted, Review: &awaiting},
		workflow.ReportChange{Status: &status})
	assert.ErrorIs(t, err, workflow.ErrConflict)

	current, err := store.Reports().GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, current.ReviewState)
	assert.True(t, current.IsTerminal())
}

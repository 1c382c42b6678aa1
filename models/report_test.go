package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValidity(t *testing.T) {
	for _, s := range []ReportStatus{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusRejected} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, ReportStatus("resolved").IsValid())
	assert.False(t, ReportStatus("").IsValid())
}

func TestReviewStateValidity(t *testing.T) {
	for _, r := range []ReviewState{ReviewNotApplicable, ReviewAwaiting, ReviewApproved, ReviewRejected} {
		assert.True(t, r.IsValid(), string(r))
	}
	assert.False(t, ReviewState("maybe").IsValid())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "road_repair", NormalizeCategory("Road Repair"))
	assert.Equal(t, "road_repair", NormalizeCategory("  road   REPAIR "))
	assert.Equal(t, "road_repair", NormalizeCategory("road_repair"))
	assert.Equal(t, "", NormalizeCategory("   "))
}

func TestStaffHandlesCategory(t *testing.T) {
	st := &Staff{
		Specialization:       "road_repair",
		AdditionalCategories: []string{"pothole", "drainage"},
	}
	assert.True(t, st.HandlesCategory("Road Repair"))
	assert.True(t, st.HandlesCategory("pothole"))
	assert.False(t, st.HandlesCategory("sanitation"))
}

func TestReportTerminality(t *testing.T) {
	r := &Report{Status: StatusCompleted, ReviewState: ReviewAwaiting}
	assert.False(t, r.IsTerminal())
	assert.True(t, r.AwaitingReview())

	r.ReviewState = ReviewApproved
	assert.True(t, r.IsTerminal())
	assert.False(t, r.AwaitingReview())

	r = &Report{Status: StatusRejected, ReviewState: ReviewNotApplicable}
	assert.True(t, r.IsTerminal())

	r = &Report{Status: StatusInProgress, ReviewState: ReviewNotApplicable}
	assert.False(t, r.IsTerminal())
}

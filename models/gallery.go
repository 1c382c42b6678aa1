package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GalleryStatus string

const (
	GalleryPending  GalleryStatus = "pending"
	GalleryApproved GalleryStatus = "approved"
	GalleryRejected GalleryStatus = "rejected"
)

func (s GalleryStatus) IsValid() bool {
	switch s {
	case GalleryPending, GalleryApproved, GalleryRejected:
		return true
	default:
		return false
	}
}

// GallerySubmission is a before/after image pair submitted by staff against a
// completed report. Approval and rejection are terminal; only the featured
// flag stays togglable afterwards, and only while approved.
type GallerySubmission struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReportID          primitive.ObjectID `bson:"report_id" json:"report_id"`
	BeforeImageKey    string             `bson:"before_image_key" json:"before_image_key"`
	AfterImageKey     string             `bson:"after_image_key" json:"after_image_key"`
	Caption           string             `bson:"caption,omitempty" json:"caption,omitempty"`
	UploadedByStaffID primitive.ObjectID `bson:"uploaded_by_staff_id" json:"uploaded_by_staff_id"`
	Status            GalleryStatus      `bson:"status" json:"status"`
	Featured          bool               `bson:"featured" json:"featured"`
	AdminNotes        string             `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	RejectionReason   string             `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	ReviewedAt        *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

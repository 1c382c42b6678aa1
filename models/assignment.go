package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment is the ephemeral payload an admin submits when routing a report
// to a staff member. It never persists on its own; the lifecycle engine folds
// it into the report record.
type Assignment struct {
	ReportID primitive.ObjectID `json:"report_id"`
	StaffID  primitive.ObjectID `json:"staff_id"`
	DueDate  *time.Time         `json:"due_date,omitempty"`
	Notes    string             `json:"notes,omitempty"`
}

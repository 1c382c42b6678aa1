package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Staff struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Specialization       string             `bson:"specialization" json:"specialization"`
	AdditionalCategories []string           `bson:"additional_categories,omitempty" json:"additional_categories,omitempty"`
	IsActive             bool               `bson:"is_active" json:"is_active"`
	Email                string             `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber          string             `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// HandlesCategory reports whether cat (normalized) is the staff member's
// specialization or one of their additional categories.
func (s *Staff) HandlesCategory(cat string) bool {
	norm := NormalizeCategory(cat)
	if NormalizeCategory(s.Specialization) == norm {
		return true
	}
	for _, extra := range s.AdditionalCategories {
		if NormalizeCategory(extra) == norm {
			return true
		}
	}
	return false
}

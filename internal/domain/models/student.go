// internal/domain/models/student.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student skill levels.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// Student is a registered participant.
//
// GroupIDs is a denormalized back-reference: every ID here must have a
// reciprocal entry in that group's StudentIDs. The relation package is the
// only writer of GroupIDs after creation.
type Student struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"first_name" json:"firstName"`
	LastName  string             `bson:"last_name" json:"lastName"`
	Email     string             `bson:"email" json:"email"`
	EmailCI   string             `bson:"email_ci" json:"-"`
	Phone     string             `bson:"phone" json:"phone"`
	// BirthDate is date-only, "YYYY-MM-DD".
	BirthDate string `bson:"birth_date" json:"birthDate"`
	Level     string `bson:"level" json:"level"`
	Avatar    string `bson:"avatar,omitempty" json:"avatar,omitempty"`

	GroupIDs []primitive.ObjectID `bson:"group_ids" json:"groupIds"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

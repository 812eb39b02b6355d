// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a cohort of students that sessions are scheduled against.
//
// StudentIDs and SessionIDs are denormalized reference lists:
//   - every ID in StudentIDs has this group's ID in that student's GroupIDs
//   - every ID in SessionIDs names a session whose GroupID is this group
//
// Both lists are maintained exclusively by the relation package; the group
// store never touches them on update.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`

	StudentIDs []primitive.ObjectID `bson:"student_ids" json:"studentIds"`
	SessionIDs []primitive.ObjectID `bson:"session_ids" json:"sessionIds"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

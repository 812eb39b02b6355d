// internal/domain/models/session.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session statuses.
const (
	SessionUpcoming  = "upcoming"
	SessionCompleted = "completed"
)

// SessionDateLayout is the stored wire format for Session.Date. Dates are
// kept as strings in this exact shape so that range queries can compare
// them lexicographically against a formatted "now".
const SessionDateLayout = "2006-01-02T15:04:05Z07:00"

// Session is a scheduled meeting of one group. GroupID is set at creation
// and immutable thereafter; Attendance is a snapshot of the student IDs
// present, always replaced wholesale, never merged.
type Session struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
	// Date is an ISO-8601 date-time string (see SessionDateLayout).
	Date string `bson:"date" json:"date"`
	// Duration is in minutes.
	Duration    int    `bson:"duration_minutes" json:"duration"`
	Location    string `bson:"location" json:"location"`
	Description string `bson:"description" json:"description"`
	Status      string `bson:"status" json:"status"`

	GroupID    primitive.ObjectID   `bson:"group_id" json:"groupId"`
	Attendance []primitive.ObjectID `bson:"attendance" json:"attendance"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

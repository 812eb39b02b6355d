// internal/domain/models/program.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Program types and statuses.
const (
	ProgramRegular = "regular"
	ProgramCamp    = "camp"

	ProgramActive    = "active"
	ProgramInactive  = "inactive"
	ProgramCompleted = "completed"
)

// ProgramDuration is measured in weeks for regular programs and days for
// camps; the two are mutually exclusive by Program.Type.
type ProgramDuration struct {
	Weeks int `bson:"weeks,omitempty" json:"weeks,omitempty"`
	Days  int `bson:"days,omitempty" json:"days,omitempty"`
}

// TotalDays returns the duration in days for the given program type.
func (d ProgramDuration) TotalDays(programType string) int {
	if programType == ProgramCamp {
		return d.Days
	}
	return d.Weeks * 7
}

// Activity is one ordered item of a program's curriculum.
type Activity struct {
	ID          primitive.ObjectID `bson:"activity_id" json:"activityId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Order       int                `bson:"order" json:"order"`
	Completed   bool               `bson:"completed" json:"completed"`
}

// Program is a curriculum that groups enroll in. Programs sit outside the
// group/student/session integrity web: deleting a group does not cascade
// into programs, and GroupIDs here may reference groups that no longer
// exist.
type Program struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Duration    ProgramDuration    `bson:"duration" json:"duration"`
	Type        string             `bson:"type" json:"type"`

	Activities []Activity           `bson:"activities" json:"activities"`
	GroupIDs   []primitive.ObjectID `bson:"group_ids" json:"groups"`
	Status     string               `bson:"status" json:"status"`

	StartDate time.Time `bson:"start_date" json:"startDate"`
	EndDate   time.Time `bson:"end_date" json:"endDate"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Progress returns the percentage of activities marked completed. It is
// derived, never stored.
func (p Program) Progress() float64 {
	if len(p.Activities) == 0 {
		return 0
	}
	done := 0
	for _, a := range p.Activities {
		if a.Completed {
			done++
		}
	}
	return float64(done) / float64(len(p.Activities)) * 100
}

// IsActiveAt reports whether the program is in its active window at the
// given instant.
func (p Program) IsActiveAt(now time.Time) bool {
	return p.Status == ProgramActive && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

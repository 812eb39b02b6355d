package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/buildbee/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures creates test entities by inserting documents directly, bypassing
// the stores, so store tests are not circular.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct assertions.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateStudent inserts a student with sensible defaults and no group
// memberships.
func (f *Fixtures) CreateStudent(ctx context.Context, firstName, lastName, email string) models.Student {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Student{
		ID:        primitive.NewObjectID(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		EmailCI:   text.Fold(email),
		Phone:     "+1 555 0100",
		BirthDate: "2012-04-15",
		Level:     models.LevelBeginner,
		GroupIDs:  []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("students").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test student: %v", err)
	}
	return s
}

// CreateGroup inserts an empty group.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test group",
		StudentIDs:  []primitive.ObjectID{},
		SessionIDs:  []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateSession inserts a session owned by groupID and records the
// back-reference on the group, the way the relation package would.
func (f *Fixtures) CreateSession(ctx context.Context, name string, groupID primitive.ObjectID, date, status string) models.Session {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Session{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Date:        date,
		Duration:    60,
		Location:    "Main hall",
		Description: "Test session",
		Status:      status,
		GroupID:     groupID,
		Attendance:  []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("sessions").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test session: %v", err)
	}
	_, err := f.db.Collection("groups").UpdateByID(ctx, groupID,
		bson.M{"$addToSet": bson.M{"session_ids": s.ID}})
	if err != nil {
		f.t.Fatalf("failed to record session back-reference: %v", err)
	}
	return s
}

// LinkStudentToGroup records both sides of a membership directly.
func (f *Fixtures) LinkStudentToGroup(ctx context.Context, studentID, groupID primitive.ObjectID) {
	f.t.Helper()

	if _, err := f.db.Collection("groups").UpdateByID(ctx, groupID,
		bson.M{"$addToSet": bson.M{"student_ids": studentID}}); err != nil {
		f.t.Fatalf("failed to add student to group: %v", err)
	}
	if _, err := f.db.Collection("students").UpdateByID(ctx, studentID,
		bson.M{"$addToSet": bson.M{"group_ids": groupID}}); err != nil {
		f.t.Fatalf("failed to add group to student: %v", err)
	}
}

// CreateProgram inserts a four-week regular program starting at start.
func (f *Fixtures) CreateProgram(ctx context.Context, name string, start time.Time) models.Program {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Program{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test program",
		Duration:    models.ProgramDuration{Weeks: 4},
		Type:        models.ProgramRegular,
		Activities:  []models.Activity{},
		GroupIDs:    []primitive.ObjectID{},
		Status:      models.ProgramActive,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 28),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("programs").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test program: %v", err)
	}
	return p
}

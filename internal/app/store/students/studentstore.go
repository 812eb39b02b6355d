// internal/app/store/students/studentstore.go
package studentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/buildbee/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateEmail = errors.New("a student with this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("students")}
}

// Create inserts a new student. Email is lowercase-normalized; GroupIDs
// always starts empty regardless of input (memberships go through the
// relation package).
func (s *Store) Create(ctx context.Context, st models.Student) (models.Student, error) {
	now := time.Now().UTC()
	st.ID = primitive.NewObjectID()
	st.Email = strings.ToLower(strings.TrimSpace(st.Email))
	st.EmailCI = text.Fold(st.Email)
	st.GroupIDs = []primitive.ObjectID{}
	st.CreatedAt = now
	st.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, st); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Student{}, ErrDuplicateEmail
		}
		return models.Student{}, err
	}
	return st, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Student, error) {
	var st models.Student
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st); err != nil {
		return models.Student{}, err
	}
	return st, nil
}

// List returns all students ordered by last then first name.
func (s *Store) List(ctx context.Context) ([]models.Student, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "last_name", Value: 1},
		{Key: "first_name", Value: 1},
	})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	students := []models.Student{}
	if err := cur.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// Update applies the given $set fields and returns the updated document.
// Callers build set from the fields the request actually carried; group_ids
// is never part of it. A changed email must come with its refolded email_ci.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Student, error) {
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var st models.Student
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&st)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Student{}, ErrDuplicateEmail
		}
		return models.Student{}, err
	}
	return st, nil
}

// Delete removes the student document only. Cascading removal of
// back-references lives in the relation package.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

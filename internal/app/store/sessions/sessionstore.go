// internal/app/store/sessions/sessionstore.go
package sessionstore

import (
	"context"
	"time"

	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sessions")}
}

// Insert writes a new session document. Callers go through
// relation.CreateSession, which verifies the owning group and records the
// back-reference; this method is the raw write.
func (s *Store) Insert(ctx context.Context, sess models.Session) (models.Session, error) {
	now := time.Now().UTC()
	sess.ID = primitive.NewObjectID()
	if sess.Attendance == nil {
		sess.Attendance = []primitive.ObjectID{}
	}
	sess.CreatedAt = now
	sess.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Session, error) {
	var sess models.Session
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) List(ctx context.Context) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	sessions := []models.Session{}
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update applies the given $set fields and returns the updated document.
// group_id and attendance never appear in set: the owning group is
// immutable and attendance changes go through relation.MarkAttendance.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Session, error) {
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var sess models.Session
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&sess)
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

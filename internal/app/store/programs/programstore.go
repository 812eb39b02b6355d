// internal/app/store/programs/programstore.go
package programstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/buildbee/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateProgramName = errors.New("a program with this name already exists")
	ErrActivityNotFound     = errors.New("activity not found in program")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("programs")}
}

// Create inserts a new program. When EndDate is zero it is derived from
// StartDate plus the duration (weeks for regular programs, days for camps).
// Activities get IDs assigned and are stored in Order.
func (s *Store) Create(ctx context.Context, p models.Program) (models.Program, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.NameCI = text.Fold(p.Name)
	if p.Status == "" {
		p.Status = models.ProgramActive
	}
	if p.EndDate.IsZero() {
		p.EndDate = p.StartDate.AddDate(0, 0, p.Duration.TotalDays(p.Type))
	}
	if p.Activities == nil {
		p.Activities = []models.Activity{}
	}
	for i := range p.Activities {
		p.Activities[i].ID = primitive.NewObjectID()
	}
	if p.GroupIDs == nil {
		p.GroupIDs = []primitive.ObjectID{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Program{}, ErrDuplicateProgramName
		}
		return models.Program{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Program, error) {
	var p models.Program
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Program{}, err
	}
	return p, nil
}

func (s *Store) List(ctx context.Context) ([]models.Program, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	programs := []models.Program{}
	if err := cur.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// ListActive returns programs whose status is active and whose date window
// contains now.
func (s *Store) ListActive(ctx context.Context, now time.Time) ([]models.Program, error) {
	filter := bson.M{
		"status":     models.ProgramActive,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	programs := []models.Program{}
	if err := cur.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// Update applies the given $set fields and returns the updated document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Program, error) {
	if name, ok := set["name"].(string); ok {
		set["name_ci"] = text.Fold(name)
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Program
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Program{}, ErrDuplicateProgramName
		}
		return models.Program{}, err
	}
	return p, nil
}

// SetActivityCompleted flips the completed flag of one activity using a
// positional update, so concurrent edits to other activities are not lost.
func (s *Store) SetActivityCompleted(ctx context.Context, programID, activityID primitive.ObjectID, completed bool) (models.Program, error) {
	filter := bson.M{"_id": programID, "activities.activity_id": activityID}
	update := bson.M{"$set": bson.M{
		"activities.$.completed": completed,
		"updated_at":             time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Program
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Program{}, ErrActivityNotFound
		}
		return models.Program{}, err
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Package groupqueries expands a group's reference lists into full
// documents for the roster endpoints.
package groupqueries

import (
	"context"
	"errors"

	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrGroupNotFound = errors.New("group not found")

// Students returns the group's members as full student documents, in the
// order they appear in the group's student_ids list. IDs without a backing
// document are skipped.
func Students(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]models.Student, error) {
	group, err := load(ctx, db, groupID)
	if err != nil {
		return nil, err
	}

	byID := map[primitive.ObjectID]models.Student{}
	if len(group.StudentIDs) > 0 {
		cur, err := db.Collection("students").Find(ctx, bson.M{"_id": bson.M{"$in": group.StudentIDs}})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var docs []models.Student
		if err := cur.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, d := range docs {
			byID[d.ID] = d
		}
	}

	out := make([]models.Student, 0, len(group.StudentIDs))
	for _, id := range group.StudentIDs {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Sessions returns the group's sessions as full documents, in stored
// session_ids order.
func Sessions(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]models.Session, error) {
	group, err := load(ctx, db, groupID)
	if err != nil {
		return nil, err
	}

	byID := map[primitive.ObjectID]models.Session{}
	if len(group.SessionIDs) > 0 {
		cur, err := db.Collection("sessions").Find(ctx, bson.M{"_id": bson.M{"$in": group.SessionIDs}})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var docs []models.Session
		if err := cur.All(ctx, &docs); err != nil {
			return nil, err
		}
		for _, d := range docs {
			byID[d.ID] = d
		}
	}

	out := make([]models.Session, 0, len(group.SessionIDs))
	for _, id := range group.SessionIDs {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func load(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) (models.Group, error) {
	var group models.Group
	err := db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&group)
	if err == mongo.ErrNoDocuments {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

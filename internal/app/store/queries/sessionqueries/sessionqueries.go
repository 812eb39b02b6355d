// Package sessionqueries builds the read-side session views: the populated
// session detail and the upcoming/completed listings. All roster and
// attendance expansion happens here; the session store itself only returns
// raw documents.
package sessionqueries

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrSessionNotFound = errors.New("session not found")

// StudentRef is the trimmed student shape used inside session views.
type StudentRef struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FirstName string             `bson:"first_name" json:"firstName"`
	LastName  string             `bson:"last_name" json:"lastName"`
	Avatar    string             `bson:"avatar" json:"avatar"`
}

// GroupView is the owning group as shown in a session detail: its info
// fields plus the roster expanded to StudentRefs.
type GroupView struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Students    []StudentRef       `json:"students"`
}

// Detail is a session with its group and attendance populated. Group is nil
// when the owning group no longer exists; the session itself still renders.
type Detail struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Date        string             `json:"date"`
	Duration    int                `json:"duration"`
	Location    string             `json:"location"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Group       *GroupView         `json:"group"`
	Attendance  []StudentRef       `json:"attendance"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// GetDetail returns the populated view of one session. Only a missing
// session is an error; missing referenced documents degrade (nil group,
// absent students skipped) because the detail view must stay renderable
// while the integrity checker reports the drift.
func GetDetail(ctx context.Context, db *mongo.Database, sessionID primitive.ObjectID) (Detail, error) {
	var sess models.Session
	err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return Detail{}, ErrSessionNotFound
	}
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{
		ID:          sess.ID,
		Name:        sess.Name,
		Date:        sess.Date,
		Duration:    sess.Duration,
		Location:    sess.Location,
		Description: sess.Description,
		Status:      sess.Status,
		Attendance:  []StudentRef{},
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
	}

	var group models.Group
	err = db.Collection("groups").FindOne(ctx, bson.M{"_id": sess.GroupID}).Decode(&group)
	if err != nil && err != mongo.ErrNoDocuments {
		return Detail{}, err
	}
	haveGroup := err == nil

	// One lookup covers both the roster and the attendance list.
	want := append(append([]primitive.ObjectID{}, sess.Attendance...), group.StudentIDs...)
	refs, err := studentRefs(ctx, db, want)
	if err != nil {
		return Detail{}, err
	}

	if haveGroup {
		detail.Group = &GroupView{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			Students:    pickRefs(refs, group.StudentIDs),
		}
	}
	detail.Attendance = pickRefs(refs, sess.Attendance)
	return detail, nil
}

// AttendanceRefs returns the trimmed students currently on the session's
// attendance list, in stored order.
func AttendanceRefs(ctx context.Context, db *mongo.Database, sessionID primitive.ObjectID) ([]StudentRef, error) {
	var sess models.Session
	err := db.Collection("sessions").FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	refs, err := studentRefs(ctx, db, sess.Attendance)
	if err != nil {
		return nil, err
	}
	return pickRefs(refs, sess.Attendance), nil
}

// Upcoming lists sessions dated at or after now, soonest first. Dates are
// stored as SessionDateLayout strings, so formatting now the same way makes
// the range predicate a plain lexicographic compare.
func Upcoming(ctx context.Context, db *mongo.Database, now time.Time) ([]models.Session, error) {
	cutoff := now.UTC().Format(models.SessionDateLayout)
	return listSessions(ctx, db, bson.M{"date": bson.M{"$gte": cutoff}})
}

// Completed lists sessions whose status is "completed", most recent first.
func Completed(ctx context.Context, db *mongo.Database) ([]models.Session, error) {
	cur, err := db.Collection("sessions").Find(ctx,
		bson.M{"status": models.SessionCompleted},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Session{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func listSessions(ctx context.Context, db *mongo.Database, filter bson.M) ([]models.Session, error) {
	cur, err := db.Collection("sessions").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Session{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// studentRefs loads the trimmed shape for the given IDs into a map keyed by
// ID. The map deliberately drops duplicates and ignores IDs with no backing
// document.
func studentRefs(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]StudentRef, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]StudentRef{}, nil
	}
	cur, err := db.Collection("students").Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{
			"first_name": 1,
			"last_name":  1,
			"avatar":     1,
		}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var refs []StudentRef
	if err := cur.All(ctx, &refs); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]StudentRef, len(refs))
	for _, r := range refs {
		out[r.ID] = r
	}
	return out, nil
}

// pickRefs resolves ids against the lookup map, preserving the stored array
// order ($in returns documents in index order, not request order).
func pickRefs(refs map[primitive.ObjectID]StudentRef, ids []primitive.ObjectID) []StudentRef {
	out := make([]StudentRef, 0, len(ids))
	for _, id := range ids {
		if r, ok := refs[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

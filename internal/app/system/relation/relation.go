// Package relation maintains the denormalized relationships between
// groups, students, and sessions:
//
//   - Group.StudentIDs ↔ Student.GroupIDs (many-to-many, both sides stored)
//   - Group.SessionIDs ↔ Session.GroupID (one-to-many)
//   - Session.Attendance → students (snapshot set)
//
// Every mutation here updates both sides of a relationship so no dangling
// or missing reference survives the operation. Single-document changes are
// atomic ($addToSet/$pull/$set, never read-modify-write of an array);
// multi-document changes run through txn.WithTransaction, which uses a real
// transaction when the server supports one and ordered writes otherwise.
//
// All other code treats the reference lists as read-only: the entity stores
// create them empty and never update them.
package relation

import (
	"context"
	"errors"
	"time"

	groupstore "github.com/dalemusser/buildbee/internal/app/store/groups"
	sessionstore "github.com/dalemusser/buildbee/internal/app/store/sessions"
	studentstore "github.com/dalemusser/buildbee/internal/app/store/students"
	"github.com/dalemusser/buildbee/internal/app/system/txn"
	"github.com/dalemusser/buildbee/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Sentinel errors for missing peers. A relationship operation that names a
// document that does not exist fails with one of these; it never silently
// skips the missing side.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownAttendee = errors.New("attendance references a student that does not exist")
)

// Maintainer performs relationship updates across the students, groups,
// and sessions collections. List mutations go straight to the collections;
// whole-document inserts and deletes go through the entity stores.
type Maintainer struct {
	client   *mongo.Client
	students *mongo.Collection
	groups   *mongo.Collection
	sessions *mongo.Collection

	studentDocs *studentstore.Store
	groupDocs   *groupstore.Store
	sessionDocs *sessionstore.Store

	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Maintainer {
	return &Maintainer{
		client:      db.Client(),
		students:    db.Collection("students"),
		groups:      db.Collection("groups"),
		sessions:    db.Collection("sessions"),
		studentDocs: studentstore.New(db),
		groupDocs:   groupstore.New(db),
		sessionDocs: sessionstore.New(db),
		log:         logger,
	}
}

func (m *Maintainer) groupExists(ctx context.Context, id primitive.ObjectID) error {
	err := m.groups.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return ErrGroupNotFound
	}
	return err
}

func (m *Maintainer) studentExists(ctx context.Context, id primitive.ObjectID) error {
	err := m.students.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return ErrStudentNotFound
	}
	return err
}

// LinkStudent adds a student to a group, recording both directions.
// Idempotent: linking an already-linked pair changes nothing.
func (m *Maintainer) LinkStudent(ctx context.Context, groupID, studentID primitive.ObjectID) error {
	if err := m.groupExists(ctx, groupID); err != nil {
		return err
	}
	if err := m.studentExists(ctx, studentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	return txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		_, err := m.groups.UpdateByID(ctx, groupID, bson.M{
			"$addToSet": bson.M{"student_ids": studentID},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return err
		}
		_, err = m.students.UpdateByID(ctx, studentID, bson.M{
			"$addToSet": bson.M{"group_ids": groupID},
			"$set":      bson.M{"updated_at": now},
		})
		return err
	})
}

// UnlinkStudent removes a student from a group on both sides. Idempotent:
// unlinking an absent pair succeeds without effect, but both documents must
// exist.
func (m *Maintainer) UnlinkStudent(ctx context.Context, groupID, studentID primitive.ObjectID) error {
	if err := m.groupExists(ctx, groupID); err != nil {
		return err
	}
	if err := m.studentExists(ctx, studentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	return txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		_, err := m.groups.UpdateByID(ctx, groupID, bson.M{
			"$pull": bson.M{"student_ids": studentID},
			"$set":  bson.M{"updated_at": now},
		})
		if err != nil {
			return err
		}
		_, err = m.students.UpdateByID(ctx, studentID, bson.M{
			"$pull": bson.M{"group_ids": groupID},
			"$set":  bson.M{"updated_at": now},
		})
		return err
	})
}

// DeleteStudent removes the student's ID from every group roster and every
// session attendance list, then deletes the student record.
func (m *Maintainer) DeleteStudent(ctx context.Context, studentID primitive.ObjectID) error {
	if err := m.studentExists(ctx, studentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	return txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		// Back-references first: if the sequence is interrupted, a student
		// document with stale group_ids remains, which the integrity
		// checker reports; the reverse order could leave groups pointing at
		// a deleted student.
		if _, err := m.groups.UpdateMany(ctx,
			bson.M{"student_ids": studentID},
			bson.M{"$pull": bson.M{"student_ids": studentID}, "$set": bson.M{"updated_at": now}},
		); err != nil {
			return err
		}
		if _, err := m.sessions.UpdateMany(ctx,
			bson.M{"attendance": studentID},
			bson.M{"$pull": bson.M{"attendance": studentID}, "$set": bson.M{"updated_at": now}},
		); err != nil {
			return err
		}
		n, err := m.studentDocs.Delete(ctx, studentID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStudentNotFound
		}
		m.log.Info("student deleted", zap.String("student_id", studentID.Hex()))
		return nil
	})
}

// DeleteGroup removes the group's ID from every member's GroupIDs, deletes
// every session the group owns, then deletes the group itself. Sessions
// cascade rather than orphan: an orphaned session would be invisible to
// every group-scoped listing.
func (m *Maintainer) DeleteGroup(ctx context.Context, groupID primitive.ObjectID) error {
	if err := m.groupExists(ctx, groupID); err != nil {
		return err
	}

	now := time.Now().UTC()
	return txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		if _, err := m.students.UpdateMany(ctx,
			bson.M{"group_ids": groupID},
			bson.M{"$pull": bson.M{"group_ids": groupID}, "$set": bson.M{"updated_at": now}},
		); err != nil {
			return err
		}
		sessRes, err := m.sessions.DeleteMany(ctx, bson.M{"group_id": groupID})
		if err != nil {
			return err
		}
		n, err := m.groupDocs.Delete(ctx, groupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrGroupNotFound
		}
		m.log.Info("group deleted",
			zap.String("group_id", groupID.Hex()),
			zap.Int64("sessions_removed", sessRes.DeletedCount))
		return nil
	})
}

// CreateSession inserts a session and records its ID on the owning group in
// the same logical operation. The owning group must exist; GroupID is
// immutable afterwards.
func (m *Maintainer) CreateSession(ctx context.Context, sess models.Session) (models.Session, error) {
	if err := m.groupExists(ctx, sess.GroupID); err != nil {
		return models.Session{}, err
	}

	var created models.Session
	err := txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		var err error
		created, err = m.sessionDocs.Insert(ctx, sess)
		if err != nil {
			return err
		}
		_, err = m.groups.UpdateByID(ctx, created.GroupID, bson.M{
			"$addToSet": bson.M{"session_ids": created.ID},
			"$set":      bson.M{"updated_at": created.UpdatedAt},
		})
		return err
	})
	if err != nil {
		return models.Session{}, err
	}
	return created, nil
}

// DeleteSession removes the session's ID from its owning group's
// SessionIDs, then deletes the session.
func (m *Maintainer) DeleteSession(ctx context.Context, sessionID primitive.ObjectID) error {
	var sess models.Session
	err := m.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return txn.WithTransaction(ctx, m.client, func(ctx context.Context) error {
		// The owning group may already be gone (pre-existing drift); a
		// no-match update is fine.
		if _, err := m.groups.UpdateByID(ctx, sess.GroupID, bson.M{
			"$pull": bson.M{"session_ids": sessionID},
			"$set":  bson.M{"updated_at": now},
		}); err != nil {
			return err
		}
		res, err := m.sessions.DeleteOne(ctx, bson.M{"_id": sessionID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

// MarkAttendance replaces the session's attendance with exactly the given
// set of student IDs. The caller submits the complete present-list, never a
// delta. Every ID must resolve to an existing student; membership in the
// owning group is not required.
func (m *Maintainer) MarkAttendance(ctx context.Context, sessionID primitive.ObjectID, studentIDs []primitive.ObjectID) (models.Session, error) {
	if err := m.sessionExists(ctx, sessionID); err != nil {
		return models.Session{}, err
	}

	ids := dedupe(studentIDs)
	if len(ids) > 0 {
		n, err := m.students.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return models.Session{}, err
		}
		if n != int64(len(ids)) {
			return models.Session{}, ErrUnknownAttendee
		}
	}

	update := bson.M{"$set": bson.M{
		"attendance": ids,
		"updated_at": time.Now().UTC(),
	}}
	var sess models.Session
	err := m.sessions.FindOneAndUpdate(ctx, bson.M{"_id": sessionID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (m *Maintainer) sessionExists(ctx context.Context, id primitive.ObjectID) error {
	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return ErrSessionNotFound
	}
	return err
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

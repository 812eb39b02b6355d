// Package integrity cross-checks the stored relationship lists and reports
// drift. It never repairs anything: the relation package is the only writer
// of reference lists, and this scan exists to prove (or disprove) that the
// invariants held up.
package integrity

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Problem is one detected inconsistency between two documents.
type Problem struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
}

// Problem kinds.
const (
	KindOneSidedMembership = "one_sided_membership"
	KindDanglingStudentRef = "dangling_student_ref"
	KindDanglingGroupRef   = "dangling_group_ref"
	KindDanglingSessionRef = "dangling_session_ref"
	KindWrongSessionOwner  = "wrong_session_owner"
	KindUnknownAttendee    = "unknown_attendee"
)

// Report is the outcome of one scan.
type Report struct {
	Problems []Problem `json:"problems"`
	Students int       `json:"students"`
	Groups   int       `json:"groups"`
	Sessions int       `json:"sessions"`
}

func (r Report) Clean() bool { return len(r.Problems) == 0 }

type studentDoc struct {
	ID       primitive.ObjectID   `bson:"_id"`
	GroupIDs []primitive.ObjectID `bson:"group_ids"`
}

type groupDoc struct {
	ID         primitive.ObjectID   `bson:"_id"`
	StudentIDs []primitive.ObjectID `bson:"student_ids"`
	SessionIDs []primitive.ObjectID `bson:"session_ids"`
}

type sessionDoc struct {
	ID         primitive.ObjectID   `bson:"_id"`
	GroupID    primitive.ObjectID   `bson:"group_id"`
	Attendance []primitive.ObjectID `bson:"attendance"`
}

// Check scans the students, groups, and sessions collections and
// cross-references every stored relationship. The whole graph is loaded
// with ID-only projections, so the scan is a handful of full-collection
// reads rather than a query per document.
func Check(ctx context.Context, db *mongo.Database) (Report, error) {
	var students []studentDoc
	if err := loadAll(ctx, db, "students", bson.M{"group_ids": 1}, &students); err != nil {
		return Report{}, err
	}
	var groups []groupDoc
	if err := loadAll(ctx, db, "groups", bson.M{"student_ids": 1, "session_ids": 1}, &groups); err != nil {
		return Report{}, err
	}
	var sessions []sessionDoc
	if err := loadAll(ctx, db, "sessions", bson.M{"group_id": 1, "attendance": 1}, &sessions); err != nil {
		return Report{}, err
	}

	studentByID := make(map[primitive.ObjectID]studentDoc, len(students))
	for _, s := range students {
		studentByID[s.ID] = s
	}
	groupByID := make(map[primitive.ObjectID]groupDoc, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}
	sessionByID := make(map[primitive.ObjectID]sessionDoc, len(sessions))
	for _, s := range sessions {
		sessionByID[s.ID] = s
	}

	rep := Report{
		Problems: []Problem{},
		Students: len(students),
		Groups:   len(groups),
		Sessions: len(sessions),
	}
	add := func(kind, detail string, from, to primitive.ObjectID) {
		rep.Problems = append(rep.Problems, Problem{
			Kind:   kind,
			Detail: detail,
			FromID: from.Hex(),
			ToID:   to.Hex(),
		})
	}

	for _, g := range groups {
		for _, sid := range g.StudentIDs {
			s, ok := studentByID[sid]
			if !ok {
				add(KindDanglingStudentRef, "group roster references a missing student", g.ID, sid)
				continue
			}
			if !contains(s.GroupIDs, g.ID) {
				add(KindOneSidedMembership, "group lists student but student does not list group", g.ID, sid)
			}
		}
		for _, sid := range g.SessionIDs {
			sess, ok := sessionByID[sid]
			if !ok {
				add(KindDanglingSessionRef, "group references a missing session", g.ID, sid)
				continue
			}
			if sess.GroupID != g.ID {
				add(KindWrongSessionOwner, "group references a session owned by another group", g.ID, sid)
			}
		}
	}

	for _, s := range students {
		for _, gid := range s.GroupIDs {
			g, ok := groupByID[gid]
			if !ok {
				add(KindDanglingGroupRef, "student references a missing group", s.ID, gid)
				continue
			}
			if !contains(g.StudentIDs, s.ID) {
				add(KindOneSidedMembership, "student lists group but group does not list student", s.ID, gid)
			}
		}
	}

	for _, sess := range sessions {
		owner, ok := groupByID[sess.GroupID]
		if !ok {
			add(KindDanglingGroupRef, "session's owning group is missing", sess.ID, sess.GroupID)
		} else if !contains(owner.SessionIDs, sess.ID) {
			add(KindDanglingSessionRef, "session is missing from its group's session list", sess.ID, sess.GroupID)
		}
		for _, sid := range sess.Attendance {
			if _, ok := studentByID[sid]; !ok {
				add(KindUnknownAttendee, "attendance references a missing student", sess.ID, sid)
			}
		}
	}

	return rep, nil
}

func loadAll(ctx context.Context, db *mongo.Database, coll string, projection bson.M, out interface{}) error {
	cur, err := db.Collection(coll).Find(ctx, bson.M{}, options.Find().SetProjection(projection))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

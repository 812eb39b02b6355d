// internal/app/store/staff/staffstore.go
package staffstore

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
	"golang.org/x/crypto/bcrypt"
)

var ErrDuplicateStaffEmail = errors.New("a staff user with this email already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("staff_users")}
}

// Create inserts a staff user with a bcrypt hash of the given password.
func (s *Store) Create(ctx context.Context, name, email, password, role string) (models.StaffUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.StaffUser{}, err
	}

	now := time.Now().UTC()
	u := models.StaffUser{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.EmailCI = text.Fold(u.Email)

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.StaffUser{}, ErrDuplicateStaffEmail
		}
		return models.StaffUser{}, err
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.StaffUser, error) {
	var u models.StaffUser
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.StaffUser{}, err
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.StaffUser, error) {
	var u models.StaffUser
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(email)}).Decode(&u)
	if err != nil {
		return models.StaffUser{}, err
	}
	return u, nil
}

// CheckPassword compares password against the stored hash.
func (s *Store) CheckPassword(u models.StaffUser, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

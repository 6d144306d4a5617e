package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type userDoc struct {
	ObjectID     bson.ObjectID `bson:"_id,omitempty"`
	UserID       string        `bson:"userId"`
	UserName     string        `bson:"userName"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	AvatarURL    string        `bson:"avatarUrl"`
	Role         string        `bson:"role"`
	PasswordHash string        `bson:"password"`
	IsActive     bool          `bson:"isActive"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
}

func (d *userDoc) toDomain() *user.User {
	return &user.User{
		ID:           d.UserID,
		Username:     d.UserName,
		Name:         d.Name,
		Email:        d.Email,
		AvatarURL:    d.AvatarURL,
		Role:         user.Role(d.Role),
		PasswordHash: d.PasswordHash,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type UserRepo struct {
	db   *DB
	coll *mongo.Collection
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db, coll: db.DB.Collection(usersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	doc := userDoc{
		UserID:       u.ID,
		UserName:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), userIDIndex) {
				return user.ErrIDConflict
			}
			return user.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "userId", Value: id}})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "userName", Value: username}})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

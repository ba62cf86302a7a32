package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

const collectionUsers = "users"

var _ ports.UserRepository = (*UserRepository)(nil)

type userDoc struct {
	ID             int64     `bson:"_id"`
	Username       string    `bson:"username"`
	PasswordHash   string    `bson:"password_hash"`
	Role           string    `bson:"role"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
	SessionVersion int64     `bson:"session_version"`
	Version        int64     `bson:"version"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID,
		Username:       d.Username,
		PasswordHash:   d.PasswordHash,
		Role:           domain.Role(d.Role),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		SessionVersion: d.SessionVersion,
	}
}

func newUserDoc(u *domain.User, version int64) userDoc {
	return userDoc{
		ID:             u.ID,
		Username:       u.Username,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		SessionVersion: u.SessionVersion,
		Version:        version,
	}
}

type UserRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db, col: db.Collection(collectionUsers)}
}

// EnsureIndexes creates the unique username index that backs ErrUsernameTaken.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Cheap pre-check so a taken name does not burn an id; the unique index
	// still decides races.
	if n, err := r.col.CountDocuments(ctx, bson.M{"username": u.Username}); err == nil && n > 0 {
		return nil, domain.ErrUsernameTaken
	}

	id, err := nextID(ctx, r.db, collectionUsers)
	if err != nil {
		return nil, err
	}
	rec := *u
	rec.ID = id

	if _, err := r.col.InsertOne(ctx, newUserDoc(&rec, 1)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &rec, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	doc, err := r.findOne(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	out := make([]*domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, int(total), nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, mutate func(u *domain.User) error) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := r.findOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}

		next := current.toDomain()
		if err := mutate(next); err != nil {
			return nil, err
		}
		next.ID = id

		res, err := r.col.ReplaceOne(ctx,
			bson.M{"_id": id, "version": current.Version},
			newUserDoc(next, current.Version+1),
		)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrUsernameTaken
			}
			return nil, fmt.Errorf("replace user: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return nil, domain.ErrStaleRecord
}

func (r *UserRepository) Delete(ctx context.Context, id int64, guard func(u *domain.User) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := r.findOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current.toDomain()); err != nil {
				return err
			}
		}

		res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "version": current.Version})
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if res.DeletedCount == 1 {
			return nil
		}
	}
	return domain.ErrStaleRecord
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*userDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &doc, nil
}

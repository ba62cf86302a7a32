package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

const collectionAdvertisements = "advertisements"

var _ ports.AdvertisementRepository = (*AdvertisementRepository)(nil)

type advertisementDoc struct {
	ID          int64     `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Price       float64   `bson:"price"`
	Contacts    string    `bson:"contacts"`
	Author      string    `bson:"author"`
	CreatedAt   time.Time `bson:"created_at"`
	Version     int64     `bson:"version"`
}

func (d *advertisementDoc) toDomain() *domain.Advertisement {
	return &domain.Advertisement{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Contacts:    d.Contacts,
		Author:      d.Author,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

func newAdvertisementDoc(ad *domain.Advertisement, version int64) advertisementDoc {
	return advertisementDoc{
		ID:          ad.ID,
		Title:       ad.Title,
		Description: ad.Description,
		Price:       ad.Price,
		Contacts:    ad.Contacts,
		Author:      ad.Author,
		CreatedAt:   ad.CreatedAt,
		Version:     version,
	}
}

type AdvertisementRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewAdvertisementRepository(db *mongo.Database) *AdvertisementRepository {
	return &AdvertisementRepository{db: db, col: db.Collection(collectionAdvertisements)}
}

// EnsureIndexes creates the indexes used by search.
func (r *AdvertisementRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AdvertisementRepository) Create(ctx context.Context, ad *domain.Advertisement) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionAdvertisements)
	if err != nil {
		return nil, err
	}
	rec := *ad
	rec.ID = id

	if _, err := r.col.InsertOne(ctx, newAdvertisementDoc(&rec, 1)); err != nil {
		return nil, fmt.Errorf("insert advertisement: %w", err)
	}
	return &rec, nil
}

func (r *AdvertisementRepository) FindByID(ctx context.Context, id int64) (*domain.Advertisement, error) {
	doc, err := r.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *AdvertisementRepository) List(ctx context.Context, filter domain.AdvertisementFilter, limit, offset int) ([]*domain.Advertisement, int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := searchQuery(filter)
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count advertisements: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list advertisements: %w", err)
	}
	defer cur.Close(ctx)

	var docs []advertisementDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode advertisements: %w", err)
	}

	out := make([]*domain.Advertisement, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, int(total), nil
}

func (r *AdvertisementRepository) Update(ctx context.Context, id int64, mutate func(ad *domain.Advertisement) error) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := r.findOne(ctx, id)
		if err != nil {
			return nil, err
		}

		original := current.toDomain()
		next := *original
		if err := mutate(&next); err != nil {
			return nil, err
		}
		next.ID = original.ID
		next.Author = original.Author
		next.CreatedAt = original.CreatedAt

		res, err := r.col.ReplaceOne(ctx,
			bson.M{"_id": id, "version": current.Version},
			newAdvertisementDoc(&next, current.Version+1),
		)
		if err != nil {
			return nil, fmt.Errorf("replace advertisement: %w", err)
		}
		if res.MatchedCount == 1 {
			return &next, nil
		}
	}
	return nil, domain.ErrStaleRecord
}

func (r *AdvertisementRepository) Delete(ctx context.Context, id int64, guard func(ad *domain.Advertisement) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, err := r.findOne(ctx, id)
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
			return fmt.Errorf("delete advertisement: %w", err)
		}
		if res.DeletedCount == 1 {
			return nil
		}
	}
	return domain.ErrStaleRecord
}

func (r *AdvertisementRepository) findOne(ctx context.Context, id int64) (*advertisementDoc, error) {
	var doc advertisementDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAdvertisementNotFound
		}
		return nil, fmt.Errorf("find advertisement: %w", err)
	}
	return &doc, nil
}

// searchQuery translates filter into a MongoDB query document.
func searchQuery(filter domain.AdvertisementFilter) bson.M {
	q := bson.M{}
	if filter.Title != nil {
		q["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(*filter.Title), Options: "i"}
	}
	if filter.Author != nil {
		q["author"] = *filter.Author
	}
	price := bson.M{}
	if filter.PriceMin != nil {
		price["$gte"] = *filter.PriceMin
	}
	if filter.PriceMax != nil {
		price["$lte"] = *filter.PriceMax
	}
	if len(price) > 0 {
		q["price"] = price
	}
	return q
}

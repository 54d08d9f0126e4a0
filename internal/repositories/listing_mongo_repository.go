package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoListingRepository is a MongoDB implementation of ListingRepository.
type MongoListingRepository struct {
	col *mongo.Collection
}

// NewMongoListingRepository creates the listings collection handle and its
// indexes. A unique car_number index is only requested when uniqueCarNumber is set.
func NewMongoListingRepository(ctx context.Context, db *mongo.Database, uniqueCarNumber bool) (*MongoListingRepository, error) {
	col := db.Collection("listings")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "car_number", Value: 1}}, Options: options.Index().SetUnique(uniqueCarNumber)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return &MongoListingRepository{col: col}, nil
}

func literalRegex(v string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(v), Options: "i"}
}

// bsonFilter renders a query.Predicate as a MongoDB filter document.
func bsonFilter(p query.Predicate) bson.M {
	if len(p.Clauses) == 0 {
		return bson.M{}
	}
	and := make(bson.A, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		switch c.Op {
		case query.OpEq:
			and = append(and, bson.M{c.Field: c.Value})
		case query.OpIContains:
			and = append(and, bson.M{c.Field: literalRegex(c.Value)})
		case query.OpBetween:
			and = append(and, bson.M{c.Field: bson.M{"$gte": c.Min, "$lte": c.Max}})
		case query.OpAnyOf:
			or := make(bson.A, 0, len(c.Fields))
			for _, f := range c.Fields {
				or = append(or, bson.M{f: literalRegex(c.Value)})
			}
			and = append(and, bson.M{"$or": or})
		}
	}
	return bson.M{"$and": and}
}

func (r *MongoListingRepository) List(ctx context.Context, pred query.Predicate) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if pred.Limit > 0 {
		opts.SetLimit(int64(pred.Limit))
	}
	cur, err := r.col.Find(ctx, bsonFilter(pred), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer cur.Close(ctx)

	listings := []models.Listing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *MongoListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by ID %s: %w", id, err)
	}
	return &l, nil
}

func (r *MongoListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	listing.CreatedAt, listing.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, listing); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("listing %s: %w", listing.CarNumber, ErrDuplicate)
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *MongoListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": listing.ID}, listing)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("listing %s: %w", listing.CarNumber, ErrDuplicate)
		}
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("listing %s: %w", listing.ID, ErrNotFound)
	}
	return nil
}

func (r *MongoListingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MongoListingRepository) ExistsByCarNumber(ctx context.Context, carNumber, excludeID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"car_number": carNumber, "_id": bson.M{"$ne": excludeID}})
	if err != nil {
		return false, fmt.Errorf("failed to check car number: %w", err)
	}
	return n > 0, nil
}

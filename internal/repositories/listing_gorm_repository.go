package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMListingRepository is a GORM implementation of ListingRepository.
type GORMListingRepository struct {
	db *gorm.DB
}

// NewGORMListingRepository creates a new instance of GORMListingRepository.
func NewGORMListingRepository(db *gorm.DB) *GORMListingRepository {
	return &GORMListingRepository{
		db: db,
	}
}

// columns maps predicate fields to SQL column names.
var columns = map[string]string{
	query.FieldCondition:          "condition",
	query.FieldRegistrationStatus: "registration_status",
	query.FieldCompany:            "company",
	query.FieldModel:              "model",
	query.FieldVariant:            "variant",
	query.FieldBodyType:           "body_type",
	query.FieldFuelType:           "fuel_type",
	query.FieldCarNumber:          "car_number",
	query.FieldPrice:              "price",
}

// likeEscaper escapes LIKE wildcards with '!' so user input matches literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsExpr(field, value string) clause.Expression {
	return clause.Expr{
		SQL:  "LOWER(?) LIKE ? ESCAPE '!'",
		Vars: []interface{}{clause.Column{Name: columns[field]}, "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"},
	}
}

// predicateScope renders a query.Predicate as WHERE conditions.
func predicateScope(p query.Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range p.Clauses {
			switch c.Op {
			case query.OpEq:
				db = db.Where(clause.Eq{Column: clause.Column{Name: columns[c.Field]}, Value: c.Value})
			case query.OpIContains:
				db = db.Where(containsExpr(c.Field, c.Value))
			case query.OpBetween:
				col := clause.Column{Name: columns[c.Field]}
				db = db.Where(clause.And(clause.Gte{Column: col, Value: c.Min}, clause.Lte{Column: col, Value: c.Max}))
			case query.OpAnyOf:
				ors := make([]clause.Expression, 0, len(c.Fields))
				for _, f := range c.Fields {
					ors = append(ors, containsExpr(f, c.Value))
				}
				db = db.Where(clause.Or(ors...))
			}
		}
		if p.Limit > 0 {
			db = db.Limit(p.Limit)
		}
		return db
	}
}

// List retrieves the listings matching pred, newest first.
func (r *GORMListingRepository) List(ctx context.Context, pred query.Predicate) ([]models.Listing, error) {
	listings := []models.Listing{}
	err := r.db.WithContext(ctx).
		Scopes(predicateScope(pred)).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// GetByID retrieves a single listing by its ID from the database.
func (r *GORMListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing by ID %s: %w", id, err)
	}
	return &listing, nil
}

// Create creates a new listing in the database.
func (r *GORMListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("listing %s: %w", listing.CarNumber, ErrDuplicate)
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// Update writes every field of an existing listing.
func (r *GORMListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Select("*").Omit("id", "created_at").
		Updates(listing)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("listing %s: %w", listing.CarNumber, ErrDuplicate)
		}
		return fmt.Errorf("failed to update listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s: %w", listing.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a listing by its ID from the database.
func (r *GORMListingRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Listing{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExistsByCarNumber reports whether another listing already uses carNumber.
func (r *GORMListingRepository) ExistsByCarNumber(ctx context.Context, carNumber, excludeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("car_number = ? AND id <> ?", carNumber, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check car number: %w", err)
	}
	return count > 0, nil
}

package repositories

import (
	"context"

	"valuedrive/internal/models"
	"valuedrive/internal/query"
)

// ListingRepository defines the interface for listing data access.
// List results are ordered by creation time, newest first.
type ListingRepository interface {
	List(ctx context.Context, pred query.Predicate) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Create(ctx context.Context, listing *models.Listing) error
	Update(ctx context.Context, listing *models.Listing) error
	Delete(ctx context.Context, id string) error
	// ExistsByCarNumber reports whether another listing (id != excludeID) uses carNumber.
	ExistsByCarNumber(ctx context.Context, carNumber, excludeID string) (bool, error)
}

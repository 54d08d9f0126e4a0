package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/query"

	"github.com/google/uuid"
)

// MockListingRepository is an in-memory implementation of ListingRepository.
// It backs the "memory" store driver and the service tests.
type MockListingRepository struct {
	listings map[string]models.Listing
	mu       sync.RWMutex
}

// NewMockListingRepository creates a new instance of MockListingRepository.
func NewMockListingRepository() *MockListingRepository {
	return &MockListingRepository{
		listings: make(map[string]models.Listing),
	}
}

func cloneListing(l models.Listing) models.Listing {
	l.Images = append([]string(nil), l.Images...)
	return l
}

// List returns the listings matching pred, newest first.
func (r *MockListingRepository) List(_ context.Context, pred query.Predicate) ([]models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if pred.Matches(l) {
			out = append(out, cloneListing(l))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if pred.Limit > 0 && len(out) > pred.Limit {
		out = out[:pred.Limit]
	}
	return out, nil
}

// GetByID returns a listing by its ID.
func (r *MockListingRepository) GetByID(_ context.Context, id string) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	l = cloneListing(l)
	return &l, nil
}

// Create adds a new listing.
func (r *MockListingRepository) Create(_ context.Context, listing *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	if _, ok := r.listings[listing.ID]; ok {
		return fmt.Errorf("listing %s: %w", listing.ID, ErrDuplicate)
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}
	listing.UpdatedAt = listing.CreatedAt
	r.listings[listing.ID] = cloneListing(*listing)
	return nil
}

// Update replaces an existing listing.
func (r *MockListingRepository) Update(_ context.Context, listing *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[listing.ID]; !ok {
		return fmt.Errorf("listing %s: %w", listing.ID, ErrNotFound)
	}
	listing.UpdatedAt = time.Now()
	r.listings[listing.ID] = cloneListing(*listing)
	return nil
}

// Delete removes a listing by its ID.
func (r *MockListingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.listings[id]; !ok {
		return fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	delete(r.listings, id)
	return nil
}

// ExistsByCarNumber reports whether another listing already uses carNumber.
func (r *MockListingRepository) ExistsByCarNumber(_ context.Context, carNumber, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, l := range r.listings {
		if id != excludeID && l.CarNumber == carNumber {
			return true, nil
		}
	}
	return false, nil
}

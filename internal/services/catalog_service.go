package services

import (
	"context"

	"valuedrive/internal/catalog"
	"valuedrive/internal/models"
	"valuedrive/internal/query"
	"valuedrive/internal/repositories"

	"golang.org/x/sync/singleflight"
)

// DefaultBrandLimit is the size of the popular-brands widget.
const DefaultBrandLimit = 12

// CatalogService serves the normalized catalog views built from every listing.
type CatalogService struct {
	repo repositories.ListingRepository
	sf   singleflight.Group
}

func NewCatalogService(repo repositories.ListingRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// all loads every listing; concurrent callers share one store round trip.
func (s *CatalogService) all(ctx context.Context) ([]models.Listing, error) {
	v, err, _ := s.sf.Do("all", func() (any, error) {
		return s.repo.List(ctx, query.Predicate{})
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Listing), nil
}

// Brands returns the limit most listed canonical brands.
func (s *CatalogService) Brands(ctx context.Context, limit int) ([]catalog.BrandCount, error) {
	if limit <= 0 {
		limit = DefaultBrandLimit
	}
	listings, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.BrandCounts(listings, limit), nil
}

// Browse returns normalized copies of the listings matching sel, newest first.
func (s *CatalogService) Browse(ctx context.Context, sel catalog.Selection) ([]models.Listing, error) {
	listings, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(listings, sel), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"valuedrive/internal/models"
	"valuedrive/internal/query"
	"valuedrive/internal/repositories"
	"valuedrive/pkg/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageFile is an uploaded image waiting to be stored. Open may be called
// from any goroutine.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// EventPublisher receives listing events after successful mutations.
type EventPublisher interface {
	PublishListingEvent(ctx context.Context, event models.ListingEvent) error
}

// ListingOptions tunes a ListingService.
type ListingOptions struct {
	// UniqueCarNumber rejects a second listing with the same car number.
	UniqueCarNumber bool
	// Folder prefixes every stored object key.
	Folder string
	// CleanupTimeout bounds best-effort image deletion.
	CleanupTimeout time.Duration
}

// ListingService handles business logic related to listings.
type ListingService struct {
	repo     repositories.ListingRepository
	images   storage.Store
	events   EventPublisher
	log      *zap.SugaredLogger
	validate *validator.Validate
	opts     ListingOptions
}

// NewListingService creates a new ListingService. events may be nil.
func NewListingService(repo repositories.ListingRepository, images storage.Store, events EventPublisher, log *zap.SugaredLogger, opts ListingOptions) *ListingService {
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ListingService{
		repo:     repo,
		images:   images,
		events:   events,
		log:      log,
		validate: NewValidator(),
		opts:     opts,
	}
}

// List returns the listings matching the optional filters, newest first.
func (s *ListingService) List(ctx context.Context, p query.Params) ([]models.Listing, error) {
	pred, err := query.Build(p)
	if err != nil {
		var pe *query.ParamError
		if errors.As(err, &pe) {
			return nil, newValidationError(pe.Param, pe.Reason)
		}
		return nil, err
	}
	listings, err := s.repo.List(ctx, pred)
	if err != nil {
		return nil, err
	}
	for i := range listings {
		if listings[i].Images == nil {
			listings[i].Images = []string{}
		}
	}
	return listings, nil
}

// Search matches key against company, model, variant and car number, on top
// of the regular filters.
func (s *ListingService) Search(ctx context.Context, key string, p query.Params) ([]models.Listing, error) {
	p.SearchKey = key
	return s.List(ctx, p)
}

// Preview is List capped at query.PreviewLimit results.
func (s *ListingService) Preview(ctx context.Context, p query.Params) ([]models.Listing, error) {
	p.Limit = query.PreviewLimit
	return s.List(ctx, p)
}

// Get retrieves a single listing.
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	return l, nil
}

// Create validates the listing, stores its images and persists it. Nothing is
// uploaded unless every field is valid.
func (s *ListingService) Create(ctx context.Context, l *models.Listing, files []ImageFile) (*models.Listing, error) {
	l.ApplyDefaults()
	l.CarNumber = normalizeCarNumber(l.CarNumber)
	if err := s.validate.Struct(l); err != nil {
		return nil, validationError(err)
	}
	if err := validateImages(files, true); err != nil {
		return nil, err
	}
	if err := s.checkCarNumber(ctx, l.CarNumber, ""); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	l.ID = ""
	l.Images = urls
	if err := s.repo.Create(ctx, l); err != nil {
		s.cleanup(ctx, urls)
		return nil, mapRepoError(err)
	}

	s.publish(ctx, models.ListingEvent{Type: models.EventListingCreated, ListingID: l.ID, CarNumber: l.CarNumber, Company: l.Company, Images: l.Images})
	return l, nil
}

// Update applies a partial update. The resulting image list keeps the
// surviving images in order and appends new uploads. Images named in
// patch.ImagesToDelete are removed from storage only after the listing is saved.
func (s *ListingService) Update(ctx context.Context, id string, patch models.ListingPatch, files []ImageFile) (*models.Listing, []models.ImageCleanup, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}

	updated := *existing
	patch.Apply(&updated)
	updated.CarNumber = normalizeCarNumber(updated.CarNumber)
	if err := s.validate.Struct(&updated); err != nil {
		return nil, nil, validationError(err)
	}
	if err := validateImages(files, false); err != nil {
		return nil, nil, err
	}
	if updated.CarNumber != existing.CarNumber {
		if err := s.checkCarNumber(ctx, updated.CarNumber, id); err != nil {
			return nil, nil, err
		}
	}

	kept, removed := splitImages(existing.Images, patch.ImagesToDelete)
	if len(kept)+len(files) == 0 {
		return nil, nil, newValidationError("images", "a listing must keep at least one image")
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	updated.Images = append(kept, urls...)
	if err := s.repo.Update(ctx, &updated); err != nil {
		s.cleanup(ctx, urls)
		return nil, nil, mapRepoError(err)
	}

	outcomes := s.cleanup(ctx, removed)
	s.publish(ctx, models.ListingEvent{Type: models.EventListingUpdated, ListingID: id, CarNumber: updated.CarNumber, Company: updated.Company, Images: updated.Images, Cleanup: outcomes})
	return &updated, outcomes, nil
}

// Delete removes the listing and then, best-effort, each of its images. The
// result depends on the listing removal only.
func (s *ListingService) Delete(ctx context.Context, id string) ([]models.ImageCleanup, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, mapRepoError(err)
	}
	outcomes := s.cleanup(ctx, l.Images)
	s.publish(ctx, models.ListingEvent{Type: models.EventListingDeleted, ListingID: id, CarNumber: l.CarNumber, Company: l.Company, Cleanup: outcomes})
	return outcomes, nil
}

func (s *ListingService) checkCarNumber(ctx context.Context, carNumber, excludeID string) error {
	if !s.opts.UniqueCarNumber {
		return nil
	}
	exists, err := s.repo.ExistsByCarNumber(ctx, carNumber, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("car number %s: %w", carNumber, ErrDuplicate)
	}
	return nil
}

// upload stores every file concurrently. On failure, files already stored are
// removed again and the error wraps ErrExternal.
func (s *ListingService) upload(ctx context.Context, files []ImageFile) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	now := time.Now()
	for i, f := range files {
		g.Go(func() error {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", f.Filename, err)
			}
			defer rc.Close()

			url, err := s.images.Put(gctx, storage.Object{
				Key:         storage.ObjectKey(s.opts.Folder, f.Filename, now),
				ContentType: f.ContentType,
				Size:        f.Size,
				Body:        rc,
			})
			imageUploads.WithLabelValues(resultLabel(err)).Inc()
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var stored []string
		for _, u := range urls {
			if u != "" {
				stored = append(stored, u)
			}
		}
		s.cleanup(ctx, stored)
		return nil, fmt.Errorf("image upload: %v: %w", err, ErrExternal)
	}
	return urls, nil
}

// cleanup deletes every url concurrently and reports each outcome. It never
// fails and is not cut short by a cancelled request.
func (s *ListingService) cleanup(ctx context.Context, urls []string) []models.ImageCleanup {
	outcomes := make([]models.ImageCleanup, len(urls))
	if len(urls) == 0 {
		return outcomes
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CleanupTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.images.Delete(ctx, u)
			imageCleanups.WithLabelValues(resultLabel(err)).Inc()
			outcomes[i] = models.ImageCleanup{Image: u, Removed: err == nil}
			if err != nil {
				outcomes[i].Error = err.Error()
				s.log.Warnw("image cleanup failed", "image", u, "error", err)
			}
		}()
	}
	wg.Wait()
	return outcomes
}

func (s *ListingService) publish(ctx context.Context, ev models.ListingEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	if err := s.events.PublishListingEvent(ctx, ev); err != nil {
		s.log.Warnw("failed to publish listing event", "type", ev.Type, "listing", ev.ListingID, "error", err)
	}
}

// splitImages partitions current into images to keep and images to remove.
// URLs in toDelete that the listing does not own are ignored.
func splitImages(current, toDelete []string) (kept, removed []string) {
	del := make(map[string]bool, len(toDelete))
	for _, u := range toDelete {
		del[u] = true
	}
	kept = make([]string, 0, len(current))
	for _, u := range current {
		if del[u] {
			removed = append(removed, u)
			continue
		}
		kept = append(kept, u)
	}
	return kept, removed
}

func normalizeCarNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// mapRepoError translates store sentinels into service errors.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	case errors.Is(err, repositories.ErrDuplicate):
		return fmt.Errorf("%v: %w", err, ErrDuplicate)
	}
	return err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"rentals-scraper/models"
	"rentals-scraper/utils"
)

var (
	// ErrNoPostings means nothing could be extracted, so the store was left alone.
	ErrNoPostings = errors.New("no postings could be extracted")
	// ErrNoRentals means every posting was dropped during derivation.
	ErrNoRentals = errors.New("no rentals left after derivation")
)

// Backend discovers posting links and extracts single postings.
type Backend interface {
	HarvestLinks(ctx context.Context) ([]string, error)
	ExtractPosting(ctx context.Context, link string) (models.RawRecord, error)
}

// Repository replaces the stored rentals with a new batch.
type Repository interface {
	ReplaceAll(ctx context.Context, rentals []models.Rental) error
}

// RawRecordWriter persists unprocessed extractor output.
type RawRecordWriter interface {
	WriteRaw(records []models.RawRecord) error
}

// RentalsService runs a full update: harvest, extract, derive, replace.
type RentalsService struct {
	backend        Backend
	repo           Repository
	pipeline       *Pipeline
	pool           *utils.WorkerPool
	logger         *utils.Logger
	rawWriter      RawRecordWriter
	removeOutliers bool
}

// Option configures optional RentalsService behavior.
type Option func(*RentalsService)

// WithRawWriter dumps every extracted batch to w before derivation.
func WithRawWriter(w RawRecordWriter) Option {
	return func(s *RentalsService) { s.rawWriter = w }
}

// WithOutlierRemoval applies OutlierStages after derivation.
func WithOutlierRemoval(enabled bool) Option {
	return func(s *RentalsService) { s.removeOutliers = enabled }
}

func NewRentalsService(backend Backend, repo Repository, pipeline *Pipeline, pool *utils.WorkerPool, logger *utils.Logger, opts ...Option) *RentalsService {
	s := &RentalsService{
		backend:  backend,
		repo:     repo,
		pipeline: pipeline,
		pool:     pool,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update scrapes every posting and replaces the stored rentals with the
// result. A posting that fails to load is logged and skipped; failing to
// harvest the index or to persist aborts the update.
func (s *RentalsService) Update(ctx context.Context) error {
	links, err := s.backend.HarvestLinks(ctx)
	if err != nil {
		return fmt.Errorf("harvest links: %w", err)
	}
	s.logger.Info("[rentals] Harvested %d posting links", len(links))

	records := s.scrapeAll(ctx, links)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scrape postings: %w", err)
	}
	if len(records) == 0 {
		return ErrNoPostings
	}

	if s.rawWriter != nil {
		if err := s.rawWriter.WriteRaw(records); err != nil {
			s.logger.Error("[rentals] Raw dump failed: %v", err)
		}
	}

	rentals := s.pipeline.Derive(records)
	if s.removeOutliers {
		before := len(rentals)
		for _, stage := range OutlierStages {
			rentals = stage(rentals)
		}
		s.logger.Info("[rentals] Outlier removal dropped %d rentals", before-len(rentals))
	}
	if len(rentals) == 0 {
		return ErrNoRentals
	}

	if err := s.repo.ReplaceAll(ctx, rentals); err != nil {
		return fmt.Errorf("replace rentals: %w", err)
	}
	s.logger.Info("[rentals] Stored %d rentals", len(rentals))
	return nil
}

// scrapeAll extracts every link through the worker pool. The result keeps
// the order of links, minus the postings that failed.
func (s *RentalsService) scrapeAll(ctx context.Context, links []string) []models.RawRecord {
	results := make([]*models.RawRecord, len(links))
	var failed int64

	for i, link := range links {
		submitted := s.pool.Submit(ctx, func(ctx context.Context) {
			rec, err := s.backend.ExtractPosting(ctx, link)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				s.logger.Warn("[rentals] Posting failed, skipping %s: %v", link, err)
				return
			}
			results[i] = &rec
		})
		if !submitted {
			break
		}
	}
	s.pool.Wait()

	records := make([]models.RawRecord, 0, len(links))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	s.logger.Info("[rentals] Extracted %d postings | Failed: %d", len(records), failed)
	return records
}

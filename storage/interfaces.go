package storage

import (
	"context"

	"rentals-scraper/models"
)

// RentalStore is the interface any rentals storage backend must satisfy.
type RentalStore interface {
	ReplaceAll(ctx context.Context, rentals []models.Rental) error
	FetchAll(ctx context.Context) ([]models.Rental, error)
	Close() error
}

// RawRecordWriter is the interface for persisting unprocessed scraped data.
type RawRecordWriter interface {
	WriteRaw(records []models.RawRecord) error
	Close() error
}

var (
	_ RentalStore     = (*PostgresWriter)(nil)
	_ RawRecordWriter = (*CSVWriter)(nil)
)

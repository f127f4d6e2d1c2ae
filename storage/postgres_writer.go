package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentals-scraper/models"
)

var (
	// ErrClearFailed means the old rows could not be removed. The store is unchanged.
	ErrClearFailed = errors.New("postgres: clear rentals")
	// ErrInsertAfterClear means the store was cleared but the new batch
	// was not inserted. The store is now empty.
	ErrInsertAfterClear = errors.New("postgres: insert after clear")
	// ErrInsertRolledBack means the insert failed inside the replace
	// transaction. The store is unchanged.
	ErrInsertRolledBack = errors.New("postgres: insert rolled back")
)

// rentalColumns is the flattened Apartment + Rental column order.
var rentalColumns = []string{
	"location",
	"total_surface",
	"covered_surface",
	"has_balcony",
	"has_terrace",
	"has_garage",
	"is_studio_apartment",
	"rooms",
	"extras",
	"title",
	"description",
	"price",
	"expenses",
	"link",
}

// maxParams is the Postgres limit on bind parameters per statement.
const maxParams = 65535

func rentalValues(r models.Rental) []any {
	a := r.Apartment
	return []any{
		a.Location,
		nullInt(a.TotalSurface),
		nullInt(a.CoveredSurface),
		a.HasBalcony,
		a.HasTerrace,
		a.HasGarage,
		a.IsStudioApartment,
		nullInt(a.Rooms),
		a.Extras,
		r.Title,
		r.Description,
		nullFloat(r.Price),
		nullFloat(r.Expenses),
		r.Link,
	}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresWriter persists rentals to PostgreSQL.
type PostgresWriter struct {
	db     *sql.DB
	atomic bool
}

// NewPostgresWriter opens a connection with the given database/sql driver,
// waits for the server, ensures the schema and returns a ready-to-use writer.
func NewPostgresWriter(driver, dsn string, atomic bool) (*PostgresWriter, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := NewPostgresWriterFromDB(db, atomic)
	if err := pw.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

// NewPostgresWriterFromDB wraps an already open handle.
func NewPostgresWriterFromDB(db *sql.DB, atomic bool) *PostgresWriter {
	return &PostgresWriter{db: db, atomic: atomic}
}

// EnsureSchema creates the rentals table when it does not exist yet.
func (pw *PostgresWriter) EnsureSchema(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rentals (
			location            TEXT             NOT NULL DEFAULT '',
			total_surface       INTEGER,
			covered_surface     INTEGER,
			has_balcony         BOOLEAN          NOT NULL DEFAULT FALSE,
			has_terrace         BOOLEAN          NOT NULL DEFAULT FALSE,
			has_garage          BOOLEAN          NOT NULL DEFAULT FALSE,
			is_studio_apartment BOOLEAN          NOT NULL DEFAULT FALSE,
			rooms               INTEGER,
			extras              TEXT             NOT NULL DEFAULT '[]',
			title               TEXT             NOT NULL DEFAULT '',
			description         TEXT             NOT NULL DEFAULT '',
			price               DOUBLE PRECISION,
			expenses            DOUBLE PRECISION,
			link                TEXT             NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Truncate removes every stored rental.
func (pw *PostgresWriter) Truncate(ctx context.Context) error {
	return truncate(ctx, pw.db)
}

func truncate(ctx context.Context, ex execer) error {
	if _, err := ex.ExecContext(ctx, "TRUNCATE TABLE rentals"); err != nil {
		return fmt.Errorf("%w: %w", ErrClearFailed, err)
	}
	return nil
}

// ReplaceAll clears the table and inserts rentals in their given order.
// In atomic mode both steps share one transaction and a failure leaves the
// previous rows in place.
func (pw *PostgresWriter) ReplaceAll(ctx context.Context, rentals []models.Rental) error {
	if !pw.atomic {
		if err := truncate(ctx, pw.db); err != nil {
			return err
		}
		if err := insertRentals(ctx, pw.db, rentals); err != nil {
			return fmt.Errorf("%w: %w", ErrInsertAfterClear, err)
		}
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	if err := truncate(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertRentals(ctx, tx, rentals); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %w", ErrInsertRolledBack, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertRentals(ctx context.Context, ex execer, rentals []models.Rental) error {
	batchSize := maxParams / len(rentalColumns)
	for i := 0; i < len(rentals); i += batchSize {
		end := min(i+batchSize, len(rentals))
		if err := insertBatch(ctx, ex, rentals[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertBatch(ctx context.Context, ex execer, batch []models.Rental) error {
	n := len(rentalColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*n)

	for idx, r := range batch {
		placeholders := make([]string, n)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*n+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, rentalValues(r)...)
	}

	query := fmt.Sprintf("INSERT INTO rentals (%s) VALUES %s",
		strings.Join(rentalColumns, ", "), strings.Join(valueStrings, ","))

	_, err := ex.ExecContext(ctx, query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored rentals. Used by the insight service.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]models.Rental, error) {
	rows, err := pw.db.QueryContext(ctx,
		"SELECT "+strings.Join(rentalColumns, ", ")+" FROM rentals")
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var rentals []models.Rental
	for rows.Next() {
		var r models.Rental
		var total, covered, rooms sql.NullInt64
		var price, expenses sql.NullFloat64
		a := &r.Apartment
		if err := rows.Scan(
			&a.Location, &total, &covered,
			&a.HasBalcony, &a.HasTerrace, &a.HasGarage, &a.IsStudioApartment,
			&rooms, &a.Extras, &r.Title, &r.Description,
			&price, &expenses, &r.Link,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		a.TotalSurface = intPtr(total)
		a.CoveredSurface = intPtr(covered)
		a.Rooms = intPtr(rooms)
		r.Price = floatPtr(price)
		r.Expenses = floatPtr(expenses)
		rentals = append(rentals, r)
	}
	return rentals, rows.Err()
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

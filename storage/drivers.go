package storage

// database/sql drivers selectable through DB_DRIVER.
import (
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx"
	_ "github.com/lib/pq"              // "postgres"
)

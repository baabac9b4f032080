package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownDriver is returned by Open when no database/sql driver is
// registered under the requested name.
var ErrUnknownDriver = errors.New("unknown database driver")

// Store wraps a database handle and runs scripts against it.
type Store struct {
	db     *sql.DB
	driver string
}

// Open creates a new Store for the given driver and DSN and verifies the
// connection. Use driver "sqlite" with DSN ":memory:" for a scratch
// database (useful for testing).
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if !slices.Contains(sql.Drivers(), driver) {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownDriver, driver, Drivers())
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// One connection keeps a ":memory:" database alive between scripts.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// QueryForList executes query as a single statement and returns every
// result row as a Record. Statements that produce no result set return an
// empty slice.
func (s *Store) QueryForList(ctx context.Context, query string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := []Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		records = append(records, Record{Columns: columns, Values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}

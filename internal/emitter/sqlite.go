package emitter

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"orderscan/internal/components/assert"
	"orderscan/internal/components/chrono"
	"orderscan/internal/orders"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const insertItem = `insert into order_items (
	scanned_at, seq, order_date, order_id, paid_price, item_name, item_price, item_url
) values (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLite appends every item, unsuppressed, to the order_items table. All the rows of
// one scan are committed together on Close.
type SQLite struct {
	db        *sql.DB
	tx        *sql.Tx
	insert    *sql.Stmt
	scannedAt string
	seq       int64
	closed    bool
}

// OpenSQLite creates the schema if needed, every row written through the sink
// shares one scanned_at timestamp taken from clock.
func OpenSQLite(path string, clock chrono.API) (*SQLite, error) {
	assert.NotNil(clock)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, err
	}
	insert, err := tx.Prepare(insertItem)
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}

	return &SQLite{
		db:        db,
		tx:        tx,
		insert:    insert,
		scannedAt: clock.Now().Format(time.RFC3339),
	}, nil
}

func nullable(value string, ok bool) sql.NullString {
	return sql.NullString{String: value, Valid: ok}
}

func (s *SQLite) Write(item orders.Item) error {
	url, hasUrl := item.URL()
	price, hasPrice := item.Price()

	_, err := s.insert.Exec(
		s.scannedAt,
		s.seq,
		item.Date().Format(time.DateOnly),
		item.OrderID(),
		item.PaidPrice(),
		item.Name(),
		nullable(price, hasPrice),
		nullable(url, hasUrl),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	s.seq++
	return nil
}

func (s *SQLite) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	err := s.insert.Close()
	if err != nil {
		errs = append(errs, err)
	}
	err = s.tx.Commit()
	if err != nil {
		errs = append(errs, fmt.Errorf("commit: %w", err))
	}
	err = s.db.Close()
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

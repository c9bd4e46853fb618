package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"lolsync/internal/domain"
)

// sqlite caps bound variables per statement; IN lists are split to stay
// well below it.
const inChunkSize = 500

// InTx runs fn in one transaction. The pool opens every transaction with
// BEGIN IMMEDIATE, so fn holds the write lock from its first statement and
// concurrent read-modify-write cycles cannot interleave. Any error from fn
// rolls everything back.
func InTx(ctx context.Context, sqlDB *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classify tags sqlite failures with the domain error kind they stand for:
// lock contention and duplicate keys are store conflicts, violated CHECK and
// NOT NULL constraints mean the record itself is bad.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch {
	case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %w", domain.ErrStoreConflict, err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique, sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", domain.ErrStoreConflict, err)
	case sqliteErr.Code == sqlite3.ErrConstraint:
		return fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	default:
		return err
	}
}

func chunks(ids []string) [][]string {
	var out [][]string
	for i := 0; i < len(ids); i += inChunkSize {
		end := i + inChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

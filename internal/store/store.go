package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"slotswapper-backend/internal/apperr"
)

// Store runs units of work against the durable store.
type Store interface {
	// InTx runs fn in a single database transaction. fn's error aborts the
	// transaction and is returned after driver errors are classified.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	txOpts *sql.TxOptions
}

// NewGormStore creates a new GORM-backed store. A non-default isolation level
// is requested for every transaction it opens.
func NewGormStore(db *gorm.DB, isolation sql.IsolationLevel) Store {
	s := &gormStore{db: db}
	if isolation != sql.LevelDefault {
		s.txOpts = &sql.TxOptions{Isolation: isolation}
	}
	return s
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	run := func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}

	var err error
	if s.txOpts != nil {
		err = s.db.WithContext(ctx).Transaction(run, s.txOpts)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	return classify(err)
}

// PostgreSQL error codes surfaced to callers as conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// classify turns driver-level concurrency failures into apperr.ErrConflict.
// Errors that already carry a kind pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return apperr.Conflict("concurrent update, please retry")
		case pgUniqueViolation:
			return duplicate(pgErr.ConstraintName)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return duplicate(err.Error())
	}
	return err
}

// duplicate reports a unique violation. hint is a constraint name or the
// driver's message and tells the pending-proposal indexes apart from the rest.
func duplicate(hint string) error {
	if strings.Contains(hint, "uniq_pending") || strings.Contains(hint, "swap_proposals") {
		return fmt.Errorf("%w: %w", ErrDuplicate, apperr.Conflict("one or both slots already have a pending swap request"))
	}
	return fmt.Errorf("%w: %w", ErrDuplicate, apperr.Conflict("record already exists"))
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// gormTx implements Tx on top of an open gorm transaction.
type gormTx struct {
	db *gorm.DB
}

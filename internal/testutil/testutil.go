// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slotswapper-backend/internal/db"
	"slotswapper-backend/internal/model"
	"slotswapper-backend/internal/store"
)

// Base is a fixed reference time for slot fixtures.
var Base = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// NewDB opens a private in-memory SQLite database with the schema applied.
// A single connection serializes concurrent transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// NewStore returns a store over NewDB.
func NewStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewGormStore(NewDB(t), sql.LevelDefault)
}

// Logger returns a logger that discards everything.
func Logger() *zap.Logger {
	return zap.NewNop()
}

// User inserts a user with the given name.
func User(t *testing.T, s store.Store, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: uuid.NewString() + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(u)
	}))
	return u
}

// Slot inserts a slot of one hour starting offset after Base.
func Slot(t *testing.T, s store.Store, owner int64, title string, offset time.Duration, status model.SlotStatus) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		Title:     title,
		StartTime: Base.Add(offset),
		EndTime:   Base.Add(offset + time.Hour),
		Status:    status,
		OwnerID:   owner,
	}
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateSlot(slot)
	}))
	return slot
}

// ReloadSlot reads a slot back from the store.
func ReloadSlot(t *testing.T, s store.Store, id int64) *model.Slot {
	t.Helper()
	var slot *model.Slot
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		slot, err = tx.Slot(id)
		return err
	}))
	return slot
}

// CountProposals returns the number of proposals in status.
func CountProposals(t *testing.T, s store.Store, status model.ProposalStatus) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(&model.SwapProposal{}).Where("status = ?", status).Count(&n).Error)
	return n
}

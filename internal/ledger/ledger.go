// Package ledger owns slot lifecycle: creation, owner edits, deletion and
// the marketplace listing. It never sets or clears SWAP_PENDING; that is the
// swap engine's job.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"slotswapper-backend/internal/apperr"
	"slotswapper-backend/internal/model"
	"slotswapper-backend/internal/store"
)

const maxTitleLength = 200

// UnknownName is shown for users that can no longer be resolved.
const UnknownName = "Unknown"

// Ledger manages slots on behalf of their owners.
type Ledger struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a Ledger.
func New(s store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: s, logger: logger.Named("ledger")}
}

// SlotPatch is a partial update. Nil fields are left unchanged.
type SlotPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *model.SlotStatus
}

func (p SlotPatch) empty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}

// lockNoop reports whether the patch leaves a SWAP_PENDING slot untouched.
func (p SlotPatch) lockNoop() bool {
	if p.Title != nil || p.StartTime != nil || p.EndTime != nil {
		return false
	}
	return p.Status == nil || *p.Status == model.SlotSwapPending
}

// Create adds a BUSY slot owned by owner.
func (l *Ledger) Create(ctx context.Context, owner int64, title string, start, end time.Time) (*model.Slot, error) {
	title, err := validTitle(title)
	if err != nil {
		return nil, err
	}
	if err := validRange(start, end); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		Title:     title,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Status:    model.SlotBusy,
		OwnerID:   owner,
	}
	if err := l.store.InTx(ctx, func(tx store.Tx) error {
		return tx.CreateSlot(slot)
	}); err != nil {
		return nil, err
	}

	l.logger.Info("slot created", zap.Int64("slot_id", slot.ID), zap.Int64("owner_id", owner))
	return slot, nil
}

// List returns the owner's slots by start time.
func (l *Ledger) List(ctx context.Context, owner int64) ([]model.Slot, error) {
	var slots []model.Slot
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		slots, err = tx.SlotsByOwner(owner)
		return err
	})
	return slots, err
}

// Get returns one of the owner's slots. Slots of other users are reported
// exactly like missing ones.
func (l *Ledger) Get(ctx context.Context, owner, id int64) (*model.Slot, error) {
	var slot *model.Slot
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		slot, err = ownedSlot(tx, owner, id)
		return err
	})
	return slot, err
}

// Update applies patch to one of the owner's slots. A SWAP_PENDING slot
// rejects every real change, and no patch may set SWAP_PENDING.
func (l *Ledger) Update(ctx context.Context, owner, id int64, patch SlotPatch) (*model.Slot, error) {
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperr.Validation("unknown status %q", *patch.Status)
		}
	}
	var title string
	if patch.Title != nil {
		var err error
		if title, err = validTitle(*patch.Title); err != nil {
			return nil, err
		}
	}

	var updated *model.Slot
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		slot, err := ownedSlot(tx, owner, id)
		if err != nil {
			return err
		}

		if slot.Status == model.SlotSwapPending {
			if !patch.lockNoop() {
				return apperr.Conflict("cannot modify event with pending swap request")
			}
			updated = slot
			return nil
		}
		if patch.Status != nil && *patch.Status == model.SlotSwapPending {
			return apperr.Validation("status %s is reserved for swap requests", model.SlotSwapPending)
		}
		if patch.empty() {
			updated = slot
			return nil
		}

		start, end := slot.StartTime, slot.EndTime
		fields := make(map[string]any)
		if patch.Title != nil {
			fields["title"] = title
		}
		if patch.StartTime != nil {
			start = patch.StartTime.UTC()
			fields["start_time"] = start
		}
		if patch.EndTime != nil {
			end = patch.EndTime.UTC()
			fields["end_time"] = end
		}
		if err := validRange(start, end); err != nil {
			return err
		}
		if patch.Status != nil {
			fields["status"] = *patch.Status
		}

		ok, err := tx.UpdateSlot(id, owner, slot.Status, fields)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("event changed concurrently, please retry")
		}

		updated, err = tx.Slot(id)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("slot updated",
		zap.Int64("slot_id", id),
		zap.Int64("owner_id", owner),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Delete removes one of the owner's slots together with the finished swap
// proposals that reference it. SWAP_PENDING slots cannot be deleted.
func (l *Ledger) Delete(ctx context.Context, owner, id int64) error {
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		slot, err := ownedSlot(tx, owner, id)
		if err != nil {
			return err
		}
		if slot.Status == model.SlotSwapPending {
			return apperr.Conflict("cannot delete event with pending swap request")
		}

		// Re-check the status under a row lock before deleting.
		locked, err := tx.LockSlot(id, owner, slot.Status)
		if err != nil {
			return err
		}
		if !locked {
			return apperr.Conflict("cannot delete event with pending swap request")
		}

		pendingLeft, err := tx.DeleteTerminalProposalsFor(id)
		if err != nil {
			return err
		}
		if pendingLeft {
			return apperr.Consistency("slot %d is %s but a pending swap request references it", id, slot.Status)
		}

		deleted, err := tx.DeleteSlot(id, owner, slot.Status)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.Conflict("cannot delete event with pending swap request")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConsistency) {
			l.logger.Error("slot ledger inconsistency", zap.Int64("slot_id", id), zap.Error(err))
		}
		return err
	}

	l.logger.Info("slot deleted", zap.Int64("slot_id", id), zap.Int64("owner_id", owner))
	return nil
}

// ListExchangeable returns the marketplace: every SWAPPABLE slot not owned
// by excludingOwner, by start time, with its owner's name.
func (l *Ledger) ListExchangeable(ctx context.Context, excludingOwner int64) ([]model.MarketSlot, error) {
	var market []model.MarketSlot
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		slots, err := tx.SwappableSlots(excludingOwner)
		if err != nil {
			return err
		}

		ownerIDs := make([]int64, 0, len(slots))
		for _, s := range slots {
			ownerIDs = append(ownerIDs, s.OwnerID)
		}
		names, err := tx.UserNames(ownerIDs)
		if err != nil {
			return err
		}

		market = make([]model.MarketSlot, 0, len(slots))
		for _, s := range slots {
			name, ok := names[s.OwnerID]
			if !ok {
				name = UnknownName
			}
			market = append(market, model.MarketSlot{Slot: s, OwnerName: name})
		}
		return nil
	})
	return market, err
}

func ownedSlot(tx store.Tx, owner, id int64) (*model.Slot, error) {
	slot, err := tx.SlotForOwner(id, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("event not found")
	}
	return slot, err
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", apperr.Validation("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func validRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !end.After(start) {
		return apperr.Validation("end_time must be after start_time")
	}
	return nil
}

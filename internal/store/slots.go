package store

import (
	"fmt"

	"slotswapper-backend/internal/model"
)

func (t *gormTx) CreateSlot(slot *model.Slot) error {
	if err := t.db.Create(slot).Error; err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (t *gormTx) SlotForOwner(id, ownerID int64) (*model.Slot, error) {
	var slot model.Slot
	if err := t.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&slot).Error; err != nil {
		return nil, notFound(err)
	}
	return &slot, nil
}

func (t *gormTx) Slot(id int64) (*model.Slot, error) {
	var slot model.Slot
	if err := t.db.Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, notFound(err)
	}
	return &slot, nil
}

func (t *gormTx) SlotsByOwner(ownerID int64) ([]model.Slot, error) {
	slots := []model.Slot{}
	if err := t.db.Where("owner_id = ?", ownerID).Order("start_time ASC, id ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots for user %d: %w", ownerID, err)
	}
	return slots, nil
}

func (t *gormTx) SwappableSlots(excludingOwner int64) ([]model.Slot, error) {
	slots := []model.Slot{}
	if err := t.db.
		Where("status = ? AND owner_id <> ?", model.SlotSwappable, excludingOwner).
		Order("start_time ASC, id ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list swappable slots: %w", err)
	}
	return slots, nil
}

func (t *gormTx) UpdateSlot(id, ownerID int64, expected model.SlotStatus, fields map[string]any) (bool, error) {
	res := t.db.Model(&model.Slot{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, expected).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update slot %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) LockSlot(id, ownerID int64, expected model.SlotStatus) (bool, error) {
	res := t.db.Model(&model.Slot{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, expected).
		UpdateColumn("status", expected)
	if res.Error != nil {
		return false, fmt.Errorf("failed to lock slot %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) DeleteSlot(id, ownerID int64, expected model.SlotStatus) (bool, error) {
	if expected == model.SlotSwapPending {
		return false, nil
	}
	res := t.db.
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, expected).
		Delete(&model.Slot{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete slot %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) SwapSlotStatus(ids []int64, from, to model.SlotStatus) (int64, error) {
	res := t.db.Model(&model.Slot{}).
		Where("id IN ? AND status = ?", ids, from).
		Update("status", to)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to move slots %v from %s to %s: %w", ids, from, to, res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) ReassignSlot(id, expectedOwner, newOwner int64, status model.SlotStatus) (bool, error) {
	res := t.db.Model(&model.Slot{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, expectedOwner, model.SlotSwapPending).
		Updates(map[string]any{"owner_id": newOwner, "status": status})
	if res.Error != nil {
		return false, fmt.Errorf("failed to reassign slot %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) SetSlotStatus(ids []int64, status model.SlotStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if err := t.db.Model(&model.Slot{}).Where("id IN ?", ids).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to set status %s on slots %v: %w", status, ids, err)
	}
	return nil
}

func (t *gormTx) SlotTitles(ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	var slots []model.Slot
	if err := t.db.Select("id", "title").Where("id IN ?", ids).Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to load slot titles: %w", err)
	}
	for _, s := range slots {
		titles[s.ID] = s.Title
	}
	return titles, nil
}

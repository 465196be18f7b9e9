package model

import "time"

// SlotStatus is the exchange state of a slot.
type SlotStatus string

const (
	// SlotBusy is the default: the slot is not offered for exchange.
	SlotBusy SlotStatus = "BUSY"
	// SlotSwappable means the owner offers the slot on the marketplace.
	SlotSwappable SlotStatus = "SWAPPABLE"
	// SlotSwapPending means a pending swap proposal references the slot.
	// Only the swap engine sets or clears it.
	SlotSwapPending SlotStatus = "SWAP_PENDING"
)

// Valid reports whether s is a known status.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotBusy, SlotSwappable, SlotSwapPending:
		return true
	}
	return false
}

// Slot is a bounded time interval owned by exactly one user.
type Slot struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	StartTime time.Time  `gorm:"not null;index:idx_slots_owner_start,priority:2" json:"start_time"`
	EndTime   time.Time  `gorm:"not null;check:chk_slots_time_range,end_time > start_time" json:"end_time"`
	Status    SlotStatus `gorm:"size:16;not null;default:BUSY;index" json:"status"`
	OwnerID   int64      `gorm:"not null;index:idx_slots_owner_start,priority:1" json:"user_id"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// MarketSlot is a swappable slot as shown to other users.
type MarketSlot struct {
	Slot
	OwnerName string `json:"owner_name"`
}

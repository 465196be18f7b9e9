package store

import (
	"errors"

	"slotswapper-backend/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate marks a unique-key violation. It travels alongside an
// apperr conflict so callers can tell it apart from serialization failures.
var ErrDuplicate = errors.New("duplicate key")

// Tx is the set of operations available inside one transaction. Every
// method runs against the same underlying database transaction, so a
// sequence of calls inside Store.InTx commits or rolls back as one unit.
type Tx interface {
	CreateUser(user *model.User) error
	UserByID(id int64) (*model.User, error)
	UserByEmail(email string) (*model.User, error)
	UserNames(ids []int64) (map[int64]string, error)

	CreateSlot(slot *model.Slot) error
	// SlotForOwner matches on id and owner in a single predicate.
	SlotForOwner(id, ownerID int64) (*model.Slot, error)
	Slot(id int64) (*model.Slot, error)
	SlotsByOwner(ownerID int64) ([]model.Slot, error)
	// SwappableSlots lists SWAPPABLE slots not owned by excludingOwner.
	SwappableSlots(excludingOwner int64) ([]model.Slot, error)
	// UpdateSlot applies fields if the slot is still owned by ownerID and in
	// status expected, and reports whether it was.
	UpdateSlot(id, ownerID int64, expected model.SlotStatus, fields map[string]any) (bool, error)
	// LockSlot takes a row lock on a slot still owned by ownerID and in status
	// expected, and reports whether it matched.
	LockSlot(id, ownerID int64, expected model.SlotStatus) (bool, error)
	// DeleteSlot removes a slot still owned by ownerID and in status expected,
	// and reports whether a row went away. SWAP_PENDING slots are never removed.
	DeleteSlot(id, ownerID int64, expected model.SlotStatus) (bool, error)
	// SwapSlotStatus moves every listed slot from one status to another and
	// returns how many rows matched. Rows not currently in from are untouched.
	SwapSlotStatus(ids []int64, from, to model.SlotStatus) (int64, error)
	// ReassignSlot sets a locked slot's owner and status, provided it is still
	// owned by expectedOwner. It returns false when no row matched.
	ReassignSlot(id, expectedOwner, newOwner int64, status model.SlotStatus) (bool, error)
	SetSlotStatus(ids []int64, status model.SlotStatus) error

	CreateProposal(p *model.SwapProposal) error
	// PendingProposalFor returns a PENDING proposal that references any of
	// slotIDs in either role.
	PendingProposalFor(slotIDs ...int64) (*model.SwapProposal, error)
	ProposalForCounterparty(id, counterpartyID int64) (*model.SwapProposal, error)
	ProposalForProposer(id, proposerID int64) (*model.SwapProposal, error)
	// TransitionProposal moves a proposal from one status to another and
	// reports whether it was still in from.
	TransitionProposal(id int64, from, to model.ProposalStatus) (bool, error)
	// DeleteProposal removes a proposal if it is still in status.
	DeleteProposal(id int64, status model.ProposalStatus) (bool, error)
	// DeleteTerminalProposalsFor removes ACCEPTED and REJECTED proposals
	// referencing slotID and reports whether a PENDING one remains.
	DeleteTerminalProposalsFor(slotID int64) (pendingLeft bool, err error)
	IncomingProposals(counterpartyID int64) ([]model.SwapProposal, error)
	OutgoingProposals(proposerID int64) ([]model.SwapProposal, error)
	SlotTitles(ids []int64) (map[int64]string, error)
}

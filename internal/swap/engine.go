// Package swap implements the swap negotiation state machine:
//
//	(none) --Propose--> PENDING --Respond(accept)--> ACCEPTED
//	                    PENDING --Respond(reject)--> REJECTED
//	                    PENDING --Withdraw---------> (deleted)
//
// Proposing locks both slots (SWAP_PENDING) in the same transaction that
// inserts the proposal, so a slot is never part of two live negotiations.
package swap

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"slotswapper-backend/internal/apperr"
	"slotswapper-backend/internal/model"
	"slotswapper-backend/internal/store"
)

// UnknownLabel is shown for slots or users that no longer exist.
const UnknownLabel = "Unknown"

const msgAlreadyPending = "one or both slots already have a pending swap request"

// Engine runs swap negotiations against the store.
type Engine struct {
	store  store.Store
	logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(s store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: s, logger: logger.Named("swap")}
}

// Propose offers the proposer's offeredID slot in exchange for requestedID.
// Both slots must be SWAPPABLE; on success both are SWAP_PENDING and the
// returned proposal is PENDING.
func (e *Engine) Propose(ctx context.Context, proposer, offeredID, requestedID int64) (*model.SwapProposal, error) {
	var proposal *model.SwapProposal
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		offered, err := tx.SlotForOwner(offeredID, proposer)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("your slot not found")
		}
		if err != nil {
			return err
		}
		switch offered.Status {
		case model.SlotSwappable:
		case model.SlotSwapPending:
			return apperr.Conflict(msgAlreadyPending)
		default:
			return apperr.InvalidState("your slot must be marked as SWAPPABLE")
		}

		requested, err := tx.Slot(requestedID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("requested slot not found")
		}
		if err != nil {
			return err
		}
		if requested.OwnerID == proposer {
			return apperr.Validation("cannot swap with your own slot")
		}
		switch requested.Status {
		case model.SlotSwappable:
		case model.SlotSwapPending:
			return apperr.Conflict(msgAlreadyPending)
		default:
			return apperr.InvalidState("requested slot is not available for swapping")
		}

		_, err = tx.PendingProposalFor(offeredID, requestedID)
		switch {
		case err == nil:
			return apperr.Conflict(msgAlreadyPending)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		locked, err := tx.SwapSlotStatus([]int64{offeredID, requestedID}, model.SlotSwappable, model.SlotSwapPending)
		if err != nil {
			return err
		}
		if locked != 2 {
			return apperr.Conflict(msgAlreadyPending)
		}

		proposal = &model.SwapProposal{
			OfferedSlotID:   offeredID,
			RequestedSlotID: requestedID,
			ProposerID:      proposer,
			CounterpartyID:  requested.OwnerID,
			Status:          model.ProposalPending,
		}
		return tx.CreateProposal(proposal)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("swap proposed",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("proposer_id", proposer),
		zap.Int64("counterparty_id", proposal.CounterpartyID),
		zap.Int64("offered_slot_id", offeredID),
		zap.Int64("requested_slot_id", requestedID),
	)
	return proposal, nil
}

// Respond lets the counterparty accept or reject a pending proposal.
// Accepting exchanges the owners of both slots and leaves them BUSY;
// rejecting puts both back on the marketplace as SWAPPABLE.
func (e *Engine) Respond(ctx context.Context, counterparty, proposalID int64, accept bool) (*model.SwapProposal, error) {
	var proposal *model.SwapProposal
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.ProposalForCounterparty(proposalID, counterparty)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("swap request not found")
		}
		if err != nil {
			return err
		}
		if p.Status != model.ProposalPending {
			return apperr.InvalidState("swap request has already been processed")
		}

		offered, requested, err := lockedPair(tx, p)
		if err != nil {
			return err
		}

		if accept {
			if err := transition(tx, p.ID, model.ProposalAccepted); err != nil {
				return err
			}
			if err := reassign(tx, offered, requested.OwnerID); err != nil {
				return err
			}
			if err := reassign(tx, requested, offered.OwnerID); err != nil {
				return err
			}
		} else {
			if err := transition(tx, p.ID, model.ProposalRejected); err != nil {
				return err
			}
			released, err := tx.SwapSlotStatus([]int64{offered.ID, requested.ID}, model.SlotSwapPending, model.SlotSwappable)
			if err != nil {
				return err
			}
			if released != 2 {
				return apperr.Consistency("proposal %d: only %d of 2 slots were locked", p.ID, released)
			}
		}

		proposal, err = tx.ProposalForCounterparty(proposalID, counterparty)
		return err
	})
	if err != nil {
		e.logConsistency(err, proposalID)
		return nil, err
	}

	e.logger.Info("swap answered",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("counterparty_id", counterparty),
		zap.String("status", string(proposal.Status)),
	)
	return proposal, nil
}

// Withdraw lets the proposer cancel a pending proposal. The proposal row is
// deleted and both slots go back to SWAPPABLE.
func (e *Engine) Withdraw(ctx context.Context, proposer, proposalID int64) error {
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.ProposalForProposer(proposalID, proposer)
		if errors.Is(err, store.ErrNotFound) || (err == nil && p.Status != model.ProposalPending) {
			return apperr.NotFound("swap request not found")
		}
		if err != nil {
			return err
		}

		deleted, err := tx.DeleteProposal(p.ID, model.ProposalPending)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.NotFound("swap request not found")
		}
		return tx.SetSlotStatus([]int64{p.OfferedSlotID, p.RequestedSlotID}, model.SlotSwappable)
	})
	if err != nil {
		return err
	}

	e.logger.Info("swap withdrawn", zap.Int64("proposal_id", proposalID), zap.Int64("proposer_id", proposer))
	return nil
}

// ListIncoming returns the pending proposals addressed to user, newest first.
func (e *Engine) ListIncoming(ctx context.Context, user int64) ([]model.ProposalDetail, error) {
	return e.list(ctx, func(tx store.Tx) ([]model.SwapProposal, error) {
		return tx.IncomingProposals(user)
	})
}

// ListOutgoing returns every proposal made by user in any status, newest first.
func (e *Engine) ListOutgoing(ctx context.Context, user int64) ([]model.ProposalDetail, error) {
	return e.list(ctx, func(tx store.Tx) ([]model.SwapProposal, error) {
		return tx.OutgoingProposals(user)
	})
}

func (e *Engine) list(ctx context.Context, load func(tx store.Tx) ([]model.SwapProposal, error)) ([]model.ProposalDetail, error) {
	var details []model.ProposalDetail
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		proposals, err := load(tx)
		if err != nil {
			return err
		}

		var slotIDs, userIDs []int64
		for _, p := range proposals {
			slotIDs = append(slotIDs, p.OfferedSlotID, p.RequestedSlotID)
			userIDs = append(userIDs, p.ProposerID, p.CounterpartyID)
		}
		titles, err := tx.SlotTitles(slotIDs)
		if err != nil {
			return err
		}
		names, err := tx.UserNames(userIDs)
		if err != nil {
			return err
		}

		details = make([]model.ProposalDetail, 0, len(proposals))
		for _, p := range proposals {
			details = append(details, model.ProposalDetail{
				SwapProposal:       p,
				OfferedSlotTitle:   lookup(titles, p.OfferedSlotID),
				RequestedSlotTitle: lookup(titles, p.RequestedSlotID),
				ProposerName:       lookup(names, p.ProposerID),
				CounterpartyName:   lookup(names, p.CounterpartyID),
			})
		}
		return nil
	})
	return details, err
}

// lockedPair loads both slots of a pending proposal. Missing slots or slots
// that changed hands while locked mean the ledger was mutated behind the
// engine's back.
func lockedPair(tx store.Tx, p *model.SwapProposal) (offered, requested *model.Slot, err error) {
	offered, err = tx.Slot(p.OfferedSlotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.Consistency("proposal %d: offered slot %d is gone", p.ID, p.OfferedSlotID)
	}
	if err != nil {
		return nil, nil, err
	}
	requested, err = tx.Slot(p.RequestedSlotID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.Consistency("proposal %d: requested slot %d is gone", p.ID, p.RequestedSlotID)
	}
	if err != nil {
		return nil, nil, err
	}
	if offered.OwnerID != p.ProposerID || requested.OwnerID != p.CounterpartyID {
		return nil, nil, apperr.Consistency("proposal %d: slot owners changed while locked", p.ID)
	}
	return offered, requested, nil
}

func transition(tx store.Tx, id int64, to model.ProposalStatus) error {
	ok, err := tx.TransitionProposal(id, model.ProposalPending, to)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("swap request has already been processed")
	}
	return nil
}

func reassign(tx store.Tx, slot *model.Slot, newOwner int64) error {
	ok, err := tx.ReassignSlot(slot.ID, slot.OwnerID, newOwner, model.SlotBusy)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Consistency("slot %d is no longer locked by its swap request", slot.ID)
	}
	return nil
}

func (e *Engine) logConsistency(err error, proposalID int64) {
	if errors.Is(err, apperr.ErrConsistency) {
		e.logger.Error("swap ledger inconsistency", zap.Int64("proposal_id", proposalID), zap.Error(err))
	}
}

func lookup(m map[int64]string, id int64) string {
	if v, ok := m[id]; ok {
		return v
	}
	return UnknownLabel
}

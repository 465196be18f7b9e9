package store

import (
	"fmt"

	"slotswapper-backend/internal/model"
)

func (t *gormTx) CreateProposal(p *model.SwapProposal) error {
	if err := t.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create swap proposal: %w", err)
	}
	return nil
}

func (t *gormTx) PendingProposalFor(slotIDs ...int64) (*model.SwapProposal, error) {
	var p model.SwapProposal
	err := t.db.
		Where("status = ?", model.ProposalPending).
		Where(t.db.Where("offered_slot_id IN ?", slotIDs).Or("requested_slot_id IN ?", slotIDs)).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (t *gormTx) ProposalForCounterparty(id, counterpartyID int64) (*model.SwapProposal, error) {
	var p model.SwapProposal
	if err := t.db.Where("id = ? AND counterparty_id = ?", id, counterpartyID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (t *gormTx) ProposalForProposer(id, proposerID int64) (*model.SwapProposal, error) {
	var p model.SwapProposal
	if err := t.db.Where("id = ? AND proposer_id = ?", id, proposerID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (t *gormTx) TransitionProposal(id int64, from, to model.ProposalStatus) (bool, error) {
	res := t.db.Model(&model.SwapProposal{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move proposal %d to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) DeleteProposal(id int64, status model.ProposalStatus) (bool, error) {
	res := t.db.Where("id = ? AND status = ?", id, status).Delete(&model.SwapProposal{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete proposal %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) DeleteTerminalProposalsFor(slotID int64) (bool, error) {
	refs := t.db.Where("offered_slot_id = ?", slotID).Or("requested_slot_id = ?", slotID)

	if err := t.db.
		Where("status IN ?", []model.ProposalStatus{model.ProposalAccepted, model.ProposalRejected}).
		Where(refs).
		Delete(&model.SwapProposal{}).Error; err != nil {
		return false, fmt.Errorf("failed to delete proposals for slot %d: %w", slotID, err)
	}

	var pending int64
	if err := t.db.Model(&model.SwapProposal{}).
		Where("status = ?", model.ProposalPending).
		Where(refs).
		Count(&pending).Error; err != nil {
		return false, fmt.Errorf("failed to count pending proposals for slot %d: %w", slotID, err)
	}
	return pending > 0, nil
}

func (t *gormTx) IncomingProposals(counterpartyID int64) ([]model.SwapProposal, error) {
	proposals := []model.SwapProposal{}
	if err := t.db.
		Where("counterparty_id = ? AND status = ?", counterpartyID, model.ProposalPending).
		Order("created_at DESC, id DESC").
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to list incoming proposals for user %d: %w", counterpartyID, err)
	}
	return proposals, nil
}

func (t *gormTx) OutgoingProposals(proposerID int64) ([]model.SwapProposal, error) {
	proposals := []model.SwapProposal{}
	if err := t.db.
		Where("proposer_id = ?", proposerID).
		Order("created_at DESC, id DESC").
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to list outgoing proposals for user %d: %w", proposerID, err)
	}
	return proposals, nil
}

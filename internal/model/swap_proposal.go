package model

import "time"

// ProposalStatus is the negotiation state of a swap proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// SwapProposal is an offer by ProposerID to exchange OfferedSlotID for
// RequestedSlotID, which was owned by CounterpartyID when the offer was made.
type SwapProposal struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	OfferedSlotID   int64          `gorm:"not null;index" json:"requester_slot_id"`
	RequestedSlotID int64          `gorm:"not null;index" json:"requested_slot_id"`
	ProposerID      int64          `gorm:"not null;index" json:"requester_id"`
	CounterpartyID  int64          `gorm:"not null;index" json:"receiver_id"`
	Status          ProposalStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`

	// Associations
	OfferedSlot   *Slot `gorm:"foreignKey:OfferedSlotID;constraint:OnDelete:CASCADE" json:"-"`
	RequestedSlot *Slot `gorm:"foreignKey:RequestedSlotID;constraint:OnDelete:CASCADE" json:"-"`
	Proposer      *User `gorm:"foreignKey:ProposerID;constraint:OnDelete:CASCADE" json:"-"`
	Counterparty  *User `gorm:"foreignKey:CounterpartyID;constraint:OnDelete:CASCADE" json:"-"`
}

// ProposalDetail is a proposal joined with slot titles and user names.
type ProposalDetail struct {
	SwapProposal
	OfferedSlotTitle   string `json:"requester_slot_title"`
	RequestedSlotTitle string `json:"requested_slot_title"`
	ProposerName       string `json:"requester_name"`
	CounterpartyName   string `json:"receiver_name"`
}

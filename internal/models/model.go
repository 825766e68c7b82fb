package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionState is the lifecycle state of one project's bidding session
type AuctionState string

const (
	StateOpen      AuctionState = "OPEN"
	StateClosing   AuctionState = "CLOSING"
	StateLocked    AuctionState = "LOCKED"
	StateAwarded   AuctionState = "AWARDED"
	StateCancelled AuctionState = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible from s
func (s AuctionState) IsTerminal() bool {
	return s == StateAwarded || s == StateCancelled
}

// Valid reports whether s is one of the known states
func (s AuctionState) Valid() bool {
	switch s {
	case StateOpen, StateClosing, StateLocked, StateAwarded, StateCancelled:
		return true
	}
	return false
}

// BidStatus is the ledger status of a single bid row
type BidStatus string

const (
	BidActive     BidStatus = "ACTIVE"
	BidSuperseded BidStatus = "SUPERSEDED"
	BidWithdrawn  BidStatus = "WITHDRAWN"
)

// Project represents a biddable engagement and its auction settings
type Project struct {
	ProjectID       string          `json:"project_id" gorm:"primaryKey"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	BudgetMin       decimal.Decimal `json:"budget_min" gorm:"type:decimal(20,4)"`
	BudgetMax       decimal.Decimal `json:"budget_max" gorm:"type:decimal(20,4)"`
	Currency        string          `json:"currency"`
	OpensAt         time.Time       `json:"opens_at"`
	ClosesAt        time.Time       `json:"closes_at"`
	CoolingOff      time.Duration   `json:"cooling_off"`
	MaxParticipants int             `json:"max_participants"`
	State           AuctionState    `json:"state" gorm:"index"`
	StateChangedAt  time.Time       `json:"state_changed_at"`
	AwardedHandle   string          `json:"awarded_handle,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LocksAt returns the instant the cooling-off window ends
func (p Project) LocksAt() time.Time {
	return p.ClosesAt.Add(p.CoolingOff)
}

// Validate checks the structural invariants of a project definition
func (p Project) Validate() error {
	if strings.TrimSpace(p.ProjectID) == "" {
		return errors.New("missing project id")
	}
	if !p.ClosesAt.After(p.OpensAt) {
		return errors.New("close timestamp must be after open timestamp")
	}
	if p.CoolingOff < 0 {
		return errors.New("cooling-off duration must not be negative")
	}
	if p.BudgetMin.IsNegative() {
		return errors.New("budget minimum must not be negative")
	}
	if !p.BudgetMax.IsPositive() || p.BudgetMax.LessThan(p.BudgetMin) {
		return errors.New("budget maximum must be positive and not below the minimum")
	}
	if p.MaxParticipants < 0 {
		return errors.New("max participants must not be negative")
	}
	return nil
}

// Pseudonym maps a participant to its anonymous handle within one project
type Pseudonym struct {
	ProjectID     string `gorm:"primaryKey;uniqueIndex:idx_pseudonym_handle,priority:1"`
	ParticipantID string `gorm:"primaryKey"`
	Handle        string `gorm:"uniqueIndex:idx_pseudonym_handle,priority:2"`
	CreatedAt     time.Time
}

// Bid is one row of a project's append-only bid ledger
type Bid struct {
	ProjectID     string          `json:"project_id" gorm:"primaryKey"`
	Sequence      int64           `json:"sequence" gorm:"primaryKey;autoIncrement:false"`
	BidID         string          `json:"bid_id" gorm:"uniqueIndex"`
	ParticipantID string          `json:"-" gorm:"index"`
	Handle        string          `json:"handle"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(20,4)"`
	Status        BidStatus       `json:"status"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RankedBid is one derived entry of a project's ranked view
type RankedBid struct {
	Handle         string          `json:"handle"`
	Amount         decimal.Decimal `json:"amount"`
	Rank           int             `json:"rank"`
	WinProbability float64         `json:"win_probability"`
	RankDelta      int             `json:"rank_delta"`
	Sequence       int64           `json:"-"`
}

// MarketStats summarises the ACTIVE bids of a project at one instant
type MarketStats struct {
	Count         int
	Best          decimal.Decimal
	Worst         decimal.Decimal
	Mean          decimal.Decimal
	Spread        decimal.Decimal
	TimeRemaining time.Duration
	BiddingWindow time.Duration
}

// StateUpdate is the persisted form of a state transition
type StateUpdate struct {
	ProjectID     string
	State         AuctionState
	ChangedAt     time.Time
	AwardedHandle string
	CancelReason  string
}

// EventKind identifies the payload carried by an Event
type EventKind string

const (
	EventRankChanged  EventKind = "RankChanged"
	EventStateChanged EventKind = "StateChanged"
	EventAwarded      EventKind = "Awarded"
)

// Event is pushed to project subscribers
type Event struct {
	Kind      EventKind    `json:"kind"`
	ProjectID string       `json:"project_id"`
	Sequence  int64        `json:"sequence"`
	Timestamp time.Time    `json:"timestamp"`
	Ranking   []RankedBid  `json:"ranking,omitempty"`
	OldState  AuctionState `json:"old_state,omitempty"`
	NewState  AuctionState `json:"new_state,omitempty"`
	Handle    string       `json:"handle,omitempty"`
}

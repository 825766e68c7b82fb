package helpers

import (
	"errors"
	"fmt"
	"time"

	bidding "bidwar/internal/biddingService"
	"bidwar/internal/biddingerrors"
	model "bidwar/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateProjectRequest struct {
	ProjectID       string          `json:"project_id"`
	OwnerID         string          `json:"owner_id" binding:"required"`
	Title           string          `json:"title" binding:"required"`
	BudgetMin       decimal.Decimal `json:"budget_min"`
	BudgetMax       decimal.Decimal `json:"budget_max"`
	Currency        string          `json:"currency"`
	OpensAt         *time.Time      `json:"opens_at"`
	ClosesAt        time.Time       `json:"closes_at" binding:"required"`
	CoolingOff      *string         `json:"cooling_off"` // Go duration, e.g. "24h"
	MaxParticipants int             `json:"max_participants" binding:"gte=0"`
}

// Validate checks the money fields, which accept JSON numbers or strings
func (r CreateProjectRequest) Validate() error {
	if r.BudgetMin.IsNegative() {
		return errors.New("budget_min must not be negative")
	}
	if !r.BudgetMax.IsPositive() {
		return errors.New("budget_max must be positive")
	}
	return nil
}

type PlaceBidRequest struct {
	ParticipantID string          `json:"participant_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// Validate rejects a missing or non-positive amount
func (r PlaceBidRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

type AwardRequest struct {
	Handle string `json:"handle" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ProjectResponse struct {
	ProjectID       string          `json:"project_id"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	BudgetMin       decimal.Decimal `json:"budget_min"`
	BudgetMax       decimal.Decimal `json:"budget_max"`
	Currency        string          `json:"currency"`
	OpensAt         string          `json:"opens_at"`
	ClosesAt        string          `json:"closes_at"`
	LocksAt         string          `json:"locks_at"`
	CoolingOff      string          `json:"cooling_off"`
	MaxParticipants int             `json:"max_participants"`
	State           string          `json:"state"`
	StateChangedAt  string          `json:"state_changed_at"`
	AwardedHandle   string          `json:"awarded_handle,omitempty"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
}

type BidResponse struct {
	BidID       string          `json:"bid_id"`
	Handle      string          `json:"handle"`
	Sequence    int64           `json:"sequence"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	SubmittedAt string          `json:"submitted_at"`
}

type SubmitBidResponse struct {
	Handle         string      `json:"handle"`
	Rank           int         `json:"rank"`
	WinProbability float64     `json:"win_probability"`
	Bid            BidResponse `json:"bid"`
}

type StateResponse struct {
	ProjectID string `json:"project_id"`
	State     string `json:"state"`
}

type PositionResponse struct {
	ProjectID      string          `json:"project_id"`
	Handle         string          `json:"handle"`
	State          string          `json:"state"`
	Active         bool            `json:"active"`
	Rank           int             `json:"rank"`
	Amount         decimal.Decimal `json:"amount"`
	WinProbability float64         `json:"win_probability"`
	Bidders        int             `json:"bidders"`
	History        []BidResponse   `json:"history"`
}

// ToNewProject converts a create request into the engine's input
func (r CreateProjectRequest) ToNewProject() (bidding.NewProject, error) {
	np := bidding.NewProject{
		ProjectID:       r.ProjectID,
		OwnerID:         r.OwnerID,
		Title:           r.Title,
		BudgetMin:       r.BudgetMin,
		BudgetMax:       r.BudgetMax,
		Currency:        r.Currency,
		ClosesAt:        r.ClosesAt,
		MaxParticipants: r.MaxParticipants,
	}
	if r.OpensAt != nil {
		np.OpensAt = *r.OpensAt
	}
	if r.CoolingOff != nil {
		d, err := time.ParseDuration(*r.CoolingOff)
		if err != nil {
			return bidding.NewProject{}, fmt.Errorf("%w - cooling_off: %v", biddingerrors.ErrInvalidProject, err)
		}
		np.CoolingOff = &d
	}
	return np, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func NewProjectResponse(p model.Project) ProjectResponse {
	return ProjectResponse{
		ProjectID:       p.ProjectID,
		OwnerID:         p.OwnerID,
		Title:           p.Title,
		BudgetMin:       p.BudgetMin,
		BudgetMax:       p.BudgetMax,
		Currency:        p.Currency,
		OpensAt:         formatTime(p.OpensAt),
		ClosesAt:        formatTime(p.ClosesAt),
		LocksAt:         formatTime(p.LocksAt()),
		CoolingOff:      p.CoolingOff.String(),
		MaxParticipants: p.MaxParticipants,
		State:           string(p.State),
		StateChangedAt:  formatTime(p.StateChangedAt),
		AwardedHandle:   p.AwardedHandle,
		CancelReason:    p.CancelReason,
	}
}

func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:       b.BidID,
		Handle:      b.Handle,
		Sequence:    b.Sequence,
		Amount:      b.Amount,
		Status:      string(b.Status),
		SubmittedAt: formatTime(b.SubmittedAt),
	}
}

func NewSubmitBidResponse(r bidding.SubmitResult) SubmitBidResponse {
	return SubmitBidResponse{
		Handle:         r.Handle,
		Rank:           r.Rank,
		WinProbability: r.WinProbability,
		Bid:            NewBidResponse(r.Bid),
	}
}

func NewPositionResponse(p bidding.Position) PositionResponse {
	history := make([]BidResponse, 0, len(p.History))
	for _, b := range p.History {
		history = append(history, NewBidResponse(b))
	}
	return PositionResponse{
		ProjectID:      p.ProjectID,
		Handle:         p.Handle,
		State:          string(p.State),
		Active:         p.Active,
		Rank:           p.Rank,
		Amount:         p.Amount,
		WinProbability: p.WinProbability,
		Bidders:        p.Bidders,
		History:        history,
	}
}

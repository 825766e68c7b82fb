// Package ledger keeps the append-only bid history of one project.
package ledger

import (
	"bidwar/internal/biddingerrors"
	"bidwar/internal/models"
	"bidwar/utils"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Store is the durable side of the ledger
type Store interface {
	RecordBid(ctx context.Context, bid models.Bid, supersededSeq int64) error
	WithdrawBid(ctx context.Context, projectID string, sequence int64) error
}

// Submission is one request to place or update a bid
type Submission struct {
	State         models.AuctionState
	ParticipantID string
	Handle        string
	Amount        decimal.Decimal
	At            time.Time
}

// Ledger is the per-project bid history. It is not safe for concurrent
// use; the owning project serializes every call.
type Ledger struct {
	projectID       string
	budgetMin       decimal.Decimal
	budgetMax       decimal.Decimal
	maxParticipants int
	cooldown        time.Duration
	store           Store

	history  []models.Bid
	active   map[string]int // participantID -> index into history
	limiters map[string]*rate.Limiter
	nextSeq  int64
}

// New creates an empty ledger for project. cooldown is the minimum spacing
// between two submissions of the same participant; zero disables it.
func New(project models.Project, store Store, cooldown time.Duration) *Ledger {
	return &Ledger{
		projectID:       project.ProjectID,
		budgetMin:       project.BudgetMin,
		budgetMax:       project.BudgetMax,
		maxParticipants: project.MaxParticipants,
		cooldown:        cooldown,
		store:           store,
		active:          make(map[string]int),
		limiters:        make(map[string]*rate.Limiter),
		nextSeq:         1,
	}
}

// Validate runs the checks of Append that have no side effects
func (l *Ledger) Validate(participantID string, amount decimal.Decimal) error {
	if participantID == "" {
		return fmt.Errorf("ledger: %w - missing participant id", biddingerrors.ErrInvalidBid)
	}
	if amount.LessThan(l.budgetMin) || amount.GreaterThan(l.budgetMax) {
		return fmt.Errorf("ledger: %w - %s not within [%s, %s]",
			biddingerrors.ErrAmountOutOfRange, amount, l.budgetMin, l.budgetMax)
	}
	if _, represented := l.active[participantID]; !represented &&
		l.maxParticipants > 0 && len(l.active) >= l.maxParticipants {
		return fmt.Errorf("ledger: %w - %d participants already bidding", biddingerrors.ErrParticipantCapReached, len(l.active))
	}
	return nil
}

// Append records a new bid for the participant, superseding its current
// one. Either the store write and the in-memory change both happen or
// neither does.
func (l *Ledger) Append(ctx context.Context, sub Submission) (models.Bid, error) {
	if sub.State != models.StateOpen {
		return models.Bid{}, fmt.Errorf("ledger: %w - auction is %s", biddingerrors.ErrAuctionNotOpen, sub.State)
	}
	if err := l.Validate(sub.ParticipantID, sub.Amount); err != nil {
		return models.Bid{}, err
	}
	if sub.Handle == "" {
		return models.Bid{}, fmt.Errorf("ledger: %w - missing handle", biddingerrors.ErrInvalidBid)
	}

	reservation := l.limiter(sub.ParticipantID).ReserveN(sub.At, 1)
	if !reservation.OK() || reservation.DelayFrom(sub.At) > 0 {
		reservation.CancelAt(sub.At)
		return models.Bid{}, fmt.Errorf("ledger: %w - one update per %s", biddingerrors.ErrRateLimited, l.cooldown)
	}

	bid := models.Bid{
		ProjectID:     l.projectID,
		Sequence:      l.nextSeq,
		BidID:         utils.GenerateID(),
		ParticipantID: sub.ParticipantID,
		Handle:        sub.Handle,
		Amount:        sub.Amount,
		Status:        models.BidActive,
		SubmittedAt:   sub.At,
		UpdatedAt:     sub.At,
	}

	var supersededSeq int64
	prior, hasPrior := l.active[sub.ParticipantID]
	if hasPrior {
		supersededSeq = l.history[prior].Sequence
	}

	if err := l.store.RecordBid(ctx, bid, supersededSeq); err != nil {
		reservation.CancelAt(sub.At)
		return models.Bid{}, fmt.Errorf("ledger: failed to record bid for project %s: %w", l.projectID, err)
	}

	if hasPrior {
		l.history[prior].Status = models.BidSuperseded
		l.history[prior].UpdatedAt = sub.At
	}
	l.history = append(l.history, bid)
	l.active[sub.ParticipantID] = len(l.history) - 1
	l.nextSeq++
	return bid, nil
}

// Withdraw marks the participant's ACTIVE bid WITHDRAWN
func (l *Ledger) Withdraw(ctx context.Context, state models.AuctionState, participantID string, at time.Time) (models.Bid, error) {
	if state != models.StateOpen {
		return models.Bid{}, fmt.Errorf("ledger: %w - auction is %s", biddingerrors.ErrAuctionNotOpen, state)
	}
	i, ok := l.active[participantID]
	if !ok {
		return models.Bid{}, fmt.Errorf("ledger: %w - project %s", biddingerrors.ErrNoActiveBid, l.projectID)
	}

	if err := l.store.WithdrawBid(ctx, l.projectID, l.history[i].Sequence); err != nil {
		return models.Bid{}, fmt.Errorf("ledger: failed to withdraw bid for project %s: %w", l.projectID, err)
	}

	l.history[i].Status = models.BidWithdrawn
	l.history[i].UpdatedAt = at
	delete(l.active, participantID)
	return l.history[i], nil
}

// Active returns a copy of the ACTIVE bids in sequence order
func (l *Ledger) Active() []models.Bid {
	out := make([]models.Bid, 0, len(l.active))
	for _, i := range l.active {
		out = append(out, l.history[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// ActiveFor returns the participant's ACTIVE bid, if any
func (l *Ledger) ActiveFor(participantID string) (models.Bid, bool) {
	i, ok := l.active[participantID]
	if !ok {
		return models.Bid{}, false
	}
	return l.history[i], true
}

// ActiveCount returns the number of participants holding an ACTIVE bid
func (l *Ledger) ActiveCount() int {
	return len(l.active)
}

// History returns a copy of every row the participant has submitted
func (l *Ledger) History(participantID string) []models.Bid {
	var out []models.Bid
	for _, b := range l.history {
		if b.ParticipantID == participantID {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of rows in the ledger
func (l *Ledger) Len() int {
	return len(l.history)
}

// Restore rebuilds the ledger from persisted rows. Rows must belong to the
// project and at most one may be ACTIVE per participant.
func (l *Ledger) Restore(bids []models.Bid) error {
	rows := append([]models.Bid(nil), bids...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Sequence < rows[j].Sequence })

	history := make([]models.Bid, 0, len(rows))
	active := make(map[string]int)
	var last int64
	for _, b := range rows {
		if b.ProjectID != l.projectID {
			return fmt.Errorf("ledger: bid %d belongs to project %s, not %s", b.Sequence, b.ProjectID, l.projectID)
		}
		if b.Sequence <= last {
			return fmt.Errorf("ledger: duplicate sequence %d in project %s", b.Sequence, l.projectID)
		}
		last = b.Sequence
		history = append(history, b)
		if b.Status == models.BidActive {
			if _, dup := active[b.ParticipantID]; dup {
				return fmt.Errorf("ledger: more than one active bid for a participant in project %s", l.projectID)
			}
			active[b.ParticipantID] = len(history) - 1
		}
	}

	l.history = history
	l.active = active
	l.nextSeq = last + 1
	return nil
}

// ReleaseLimiters drops the per-participant cooldown state. It is called
// once the project accepts no more submissions.
func (l *Ledger) ReleaseLimiters() {
	clear(l.limiters)
}

func (l *Ledger) limiter(participantID string) *rate.Limiter {
	lim, ok := l.limiters[participantID]
	if !ok {
		limit := rate.Inf
		if l.cooldown > 0 {
			limit = rate.Every(l.cooldown)
		}
		lim = rate.NewLimiter(limit, 1)
		l.limiters[participantID] = lim
	}
	return lim
}

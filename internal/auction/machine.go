// Package auction implements the lifecycle of one project's bidding session.
package auction

import (
	"bidwar/internal/biddingerrors"
	"bidwar/internal/models"
	"fmt"
	"time"
)

// ReasonNoBids is recorded when an auction closes without ACTIVE bids
const ReasonNoBids = "no bids at close"

// transitions lists every allowed edge. Terminal states have none.
var transitions = map[models.AuctionState][]models.AuctionState{
	models.StateOpen:    {models.StateClosing, models.StateCancelled},
	models.StateClosing: {models.StateLocked, models.StateCancelled},
	models.StateLocked:  {models.StateAwarded, models.StateCancelled},
}

// CanTransition reports whether from -> to is an edge of the lifecycle
func CanTransition(from, to models.AuctionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is one applied state change
type Transition struct {
	From   models.AuctionState
	To     models.AuctionState
	At     time.Time
	Reason string
}

// Machine tracks the state of one auction. It is not safe for concurrent
// use; the owning project serializes every call.
type Machine struct {
	state     models.AuctionState
	changedAt time.Time
	opensAt   time.Time
	closesAt  time.Time
	locksAt   time.Time
}

// NewMachine starts from the state stored on project, OPEN when unset
func NewMachine(project models.Project) *Machine {
	state := project.State
	if state == "" {
		state = models.StateOpen
	}
	changedAt := project.StateChangedAt
	if changedAt.IsZero() {
		changedAt = project.CreatedAt
	}
	return &Machine{
		state:     state,
		changedAt: changedAt,
		opensAt:   project.OpensAt,
		closesAt:  project.ClosesAt,
		locksAt:   project.LocksAt(),
	}
}

// State returns the current state
func (m *Machine) State() models.AuctionState {
	return m.state
}

// ChangedAt returns when the current state was entered
func (m *Machine) ChangedAt() time.Time {
	return m.changedAt
}

// Transition moves to the given state. Edges outside the lifecycle fail
// with ErrInvalidState.
func (m *Machine) Transition(to models.AuctionState, at time.Time, reason string) (Transition, error) {
	if !CanTransition(m.state, to) {
		return Transition{}, fmt.Errorf("auction: %w - cannot move from %s to %s", biddingerrors.ErrInvalidState, m.state, to)
	}
	t := Transition{From: m.state, To: to, At: at, Reason: reason}
	m.state = to
	m.changedAt = at
	return t, nil
}

// Accepting reports whether bids may be placed or withdrawn at now
func (m *Machine) Accepting(now time.Time) error {
	if m.state != models.StateOpen {
		return fmt.Errorf("auction: %w - auction is %s", biddingerrors.ErrAuctionNotOpen, m.state)
	}
	if now.Before(m.opensAt) {
		return fmt.Errorf("auction: %w - bidding opens at %s", biddingerrors.ErrAuctionNotOpen, m.opensAt.Format(time.RFC3339))
	}
	if !now.Before(m.closesAt) {
		return fmt.Errorf("auction: %w - bidding closed at %s", biddingerrors.ErrAuctionNotOpen, m.closesAt.Format(time.RFC3339))
	}
	return nil
}

// Advance applies every time-driven transition due at now. activeBids is
// the number of ACTIVE bids at close; with none the auction is cancelled
// instead of entering the cooling-off window. Transitions are stamped with
// the deadline that triggered them.
func (m *Machine) Advance(now time.Time, activeBids int) []Transition {
	var applied []Transition
	for {
		switch {
		case m.state == models.StateOpen && !now.Before(m.closesAt):
			if activeBids == 0 {
				t, _ := m.Transition(models.StateCancelled, m.closesAt, ReasonNoBids)
				return append(applied, t)
			}
			t, _ := m.Transition(models.StateClosing, m.closesAt, "")
			applied = append(applied, t)
		case m.state == models.StateClosing && !now.Before(m.locksAt):
			t, _ := m.Transition(models.StateLocked, m.locksAt, "")
			applied = append(applied, t)
		default:
			return applied
		}
	}
}

// NextDeadline returns the instant the next time-driven transition falls
// due, or false when no timer is needed.
func (m *Machine) NextDeadline() (time.Time, bool) {
	switch m.state {
	case models.StateOpen:
		return m.closesAt, true
	case models.StateClosing:
		return m.locksAt, true
	}
	return time.Time{}, false
}

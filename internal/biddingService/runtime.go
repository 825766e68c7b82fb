package bidding

import (
	"bidwar/internal/auction"
	"bidwar/internal/biddingerrors"
	"bidwar/internal/ledger"
	"bidwar/internal/models"
	"bidwar/internal/ranking"
	"bidwar/utils"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// projectRuntime owns the mutable state of one project. mu serializes
// every write; readers use the last published snapshot.
type projectRuntime struct {
	mu       sync.Mutex
	project  models.Project
	machine  *auction.Machine
	ledger   *ledger.Ledger
	view     []models.RankedBid // last ranking, without probabilities
	previous map[string]int     // handle -> rank in the last ranking
	timer    clockwork.Timer

	snap atomic.Pointer[snapshot]
}

// snapshot is an immutable copy of what readers may see
type snapshot struct {
	project models.Project
	view    []models.RankedBid
}

func (sn *snapshot) annotate(now time.Time) []models.RankedBid {
	return annotate(sn.view, sn.project, now)
}

func (s *BiddingService) newRuntime(project models.Project) *projectRuntime {
	// a row missing state or change time reads as the machine sees it
	machine := auction.NewMachine(project)
	project.State = machine.State()
	project.StateChangedAt = machine.ChangedAt()
	return &projectRuntime{
		project:  project,
		machine:  machine,
		ledger:   ledger.New(project, s.repo, s.bidCooldown),
		previous: make(map[string]int),
	}
}

func (rt *projectRuntime) publishSnapshotLocked() {
	rt.snap.Store(&snapshot{project: rt.project, view: rt.view})
}

func (rt *projectRuntime) stopTimerLocked() {
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}

// armLocked schedules the project's next time-driven transition. A
// deadline already passed fires right away.
func (s *BiddingService) armLocked(rt *projectRuntime) {
	rt.stopTimerLocked()
	deadline, ok := rt.machine.NextDeadline()
	if !ok {
		return
	}
	d := deadline.Sub(s.now())
	if d < 0 {
		d = 0
	}
	rt.timer = s.clock.AfterFunc(d, func() { s.onDeadline(rt) })
}

func (s *BiddingService) onDeadline(rt *projectRuntime) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if s.closed.Load() {
		return
	}

	if !s.advanceLocked(context.Background(), rt, s.now()) {
		// fired early, try again
		s.armLocked(rt)
	}
}

// advanceLocked applies every transition due at now and reports whether
// any was. Time-driven transitions are derived from the project's
// deadlines, so a failed state write is logged and re-derived on the next
// restore.
func (s *BiddingService) advanceLocked(ctx context.Context, rt *projectRuntime, now time.Time) bool {
	applied := rt.machine.Advance(now, rt.ledger.ActiveCount())
	if len(applied) == 0 {
		return false
	}
	for _, tr := range applied {
		if err := s.repo.UpdateProjectState(ctx, stateUpdate(rt.project.ProjectID, tr, "")); err != nil {
			utils.Error("Failed to persist state transition", map[string]any{
				"projectID": rt.project.ProjectID,
				"state":     tr.To,
				"error":     err.Error(),
			})
		}
		s.appliedLocked(rt, tr, "")
	}
	s.armLocked(rt)
	return true
}

// commitLocked persists a client-driven transition and only then applies it
func (s *BiddingService) commitLocked(ctx context.Context, rt *projectRuntime, tr auction.Transition, awardedHandle string) error {
	if from := rt.machine.State(); !auction.CanTransition(from, tr.To) {
		return fmt.Errorf("service: %w - cannot move from %s to %s", biddingerrors.ErrInvalidState, from, tr.To)
	}
	if err := s.repo.UpdateProjectState(ctx, stateUpdate(rt.project.ProjectID, tr, awardedHandle)); err != nil {
		return fmt.Errorf("service: failed to persist %s for project %s: %w", tr.To, rt.project.ProjectID, err)
	}
	applied, err := rt.machine.Transition(tr.To, tr.At, tr.Reason)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	s.appliedLocked(rt, applied, awardedHandle)
	return nil
}

// appliedLocked reflects a transition in the project, publishes its events
// and releases the project's timer, limiters and topic once it is terminal.
// The snapshot stays so reads keep working.
func (s *BiddingService) appliedLocked(rt *projectRuntime, tr auction.Transition, awardedHandle string) {
	rt.project.State = tr.To
	rt.project.StateChangedAt = tr.At
	if awardedHandle != "" {
		rt.project.AwardedHandle = awardedHandle
	}
	if tr.Reason != "" && tr.To == models.StateCancelled {
		rt.project.CancelReason = tr.Reason
	}
	rt.publishSnapshotLocked()
	s.metrics.IncTransition(string(tr.To))

	utils.Info("Auction state changed", map[string]any{
		"projectID": rt.project.ProjectID,
		"from":      tr.From,
		"to":        tr.To,
		"at":        tr.At,
		"reason":    tr.Reason,
	})

	s.dispatcher.Publish(rt.project.ProjectID, models.Event{
		Kind:      models.EventStateChanged,
		Timestamp: tr.At,
		OldState:  tr.From,
		NewState:  tr.To,
	})
	if tr.To == models.StateAwarded {
		s.dispatcher.Publish(rt.project.ProjectID, models.Event{
			Kind:      models.EventAwarded,
			Timestamp: tr.At,
			Handle:    awardedHandle,
		})
	}

	if tr.To.IsTerminal() {
		rt.stopTimerLocked()
		rt.ledger.ReleaseLimiters()
		s.dispatcher.Release(rt.project.ProjectID)
	}
}

// recomputeLocked re-ranks the ACTIVE bids, publishes RankChanged and
// returns the annotated ranking.
func (s *BiddingService) recomputeLocked(rt *projectRuntime, now time.Time) []models.RankedBid {
	start := time.Now()
	view := ranking.Rank(rt.ledger.Active(), rt.previous)
	s.metrics.ObserveRank(time.Since(start))

	rt.view = view
	rt.previous = ranking.Positions(view)
	rt.publishSnapshotLocked()

	annotated := annotate(view, rt.project, now)
	s.dispatcher.Publish(rt.project.ProjectID, models.Event{
		Kind:      models.EventRankChanged,
		Timestamp: now,
		Ranking:   annotated,
	})
	return annotated
}

func stateUpdate(projectID string, tr auction.Transition, awardedHandle string) models.StateUpdate {
	update := models.StateUpdate{
		ProjectID:     projectID,
		State:         tr.To,
		ChangedAt:     tr.At,
		AwardedHandle: awardedHandle,
	}
	if tr.To == models.StateCancelled {
		update.CancelReason = tr.Reason
	}
	return update
}

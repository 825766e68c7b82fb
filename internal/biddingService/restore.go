package bidding

import (
	"bidwar/internal/ranking"
	"bidwar/utils"
	"context"
	"fmt"
)

// Restore loads every stored project with its ledger and handles, applies
// the transitions that fell due while the engine was down and re-arms the
// project timers. Projects already loaded are left untouched.
func (s *BiddingService) Restore(ctx context.Context) error {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("service: failed to list projects: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	restored := 0
	for _, project := range projects {
		if _, loaded := s.projects[project.ProjectID]; loaded {
			continue
		}
		if project.State != "" && !project.State.Valid() {
			return fmt.Errorf("service: project %s has unknown state %q", project.ProjectID, project.State)
		}

		pseudonyms, err := s.repo.GetPseudonyms(ctx, project.ProjectID)
		if err != nil {
			return fmt.Errorf("service: failed to load handles of project %s: %w", project.ProjectID, err)
		}
		if err := s.registry.Restore(pseudonyms); err != nil {
			return fmt.Errorf("service: %w", err)
		}

		bids, err := s.repo.GetBidsByProject(ctx, project.ProjectID)
		if err != nil {
			return fmt.Errorf("service: failed to load bids of project %s: %w", project.ProjectID, err)
		}

		rt := s.newRuntime(project)
		if err := rt.ledger.Restore(bids); err != nil {
			return fmt.Errorf("service: %w", err)
		}

		rt.mu.Lock()
		rt.view = ranking.Rank(rt.ledger.Active(), nil)
		rt.previous = ranking.Positions(rt.view)
		rt.publishSnapshotLocked()
		if !project.State.IsTerminal() && !s.advanceLocked(ctx, rt, now) {
			s.armLocked(rt)
		}
		rt.mu.Unlock()

		s.projects[project.ProjectID] = rt
		restored++
		utils.Debug("Project restored", map[string]any{
			"projectID": project.ProjectID,
			"state":     rt.machine.State(),
			"bids":      rt.ledger.Len(),
		})
	}

	utils.Info("Projects restored", map[string]any{"count": restored})
	return nil
}

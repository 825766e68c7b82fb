// Package pseudonym allocates stable anonymous handles for bidders.
package pseudonym

import (
	"bidwar/internal/biddingerrors"
	"bidwar/internal/models"
	"bidwar/utils"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// maxAllocationAttempts bounds retries when a generated token collides
const maxAllocationAttempts = 8

// Store persists handle allocations
type Store interface {
	SavePseudonym(ctx context.Context, pseudonym models.Pseudonym) error
}

// Registry maps (project, participant) pairs to handles. Each project has
// its own lock, so resolution in one project never waits on another
// project's durable write. Within a project, resolution is an atomic
// get-or-create: the lookup, the allocation and the write all happen
// inside the project's critical section.
type Registry struct {
	store    Store
	generate func() string
	now      func() time.Time

	mu       sync.RWMutex
	projects map[string]*projectHandles

	// participantID -> every handle it holds, across projects
	heldMu sync.Mutex
	held   map[string]map[string]struct{}
}

type projectHandles struct {
	mu            sync.Mutex
	byParticipant map[string]string
	byHandle      map[string]string
}

// NewRegistry creates a registry writing through to store. A nil store
// keeps allocations in memory only.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:    store,
		generate: utils.GenerateHandle,
		now:      func() time.Time { return time.Now().UTC() },
		projects: make(map[string]*projectHandles),
		held:     make(map[string]map[string]struct{}),
	}
}

func (r *Registry) project(projectID string) *projectHandles {
	r.mu.RLock()
	ph, ok := r.projects[projectID]
	r.mu.RUnlock()
	if ok {
		return ph
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ph, ok = r.projects[projectID]; !ok {
		ph = &projectHandles{
			byParticipant: make(map[string]string),
			byHandle:      make(map[string]string),
		}
		r.projects[projectID] = ph
	}
	return ph
}

func (r *Registry) lookup(projectID string) (*projectHandles, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ph, ok := r.projects[projectID]
	return ph, ok
}

// Resolve returns the participant's handle in the project, allocating and
// persisting one on first use.
func (r *Registry) Resolve(ctx context.Context, projectID, participantID string) (string, error) {
	if projectID == "" || participantID == "" {
		return "", fmt.Errorf("registry: %w - missing project or participant id", biddingerrors.ErrInvalidBid)
	}

	ph := r.project(projectID)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	if handle, ok := ph.byParticipant[participantID]; ok {
		return handle, nil
	}

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		handle := r.generate()
		if _, taken := ph.byHandle[handle]; taken {
			continue
		}
		// a participant never carries the same handle into a second project
		if !r.reserve(participantID, handle) {
			continue
		}

		p := models.Pseudonym{
			ProjectID:     projectID,
			ParticipantID: participantID,
			Handle:        handle,
			CreatedAt:     r.now(),
		}
		if r.store != nil {
			if err := r.store.SavePseudonym(ctx, p); err != nil {
				r.unreserve(participantID, handle)
				if errors.Is(err, biddingerrors.ErrHandleTaken) {
					continue
				}
				return "", fmt.Errorf("registry: failed to persist handle for project %s: %w", projectID, err)
			}
		}
		ph.byParticipant[participantID] = handle
		ph.byHandle[handle] = participantID
		return handle, nil
	}
	return "", fmt.Errorf("registry: could not allocate a unique handle for project %s", projectID)
}

// Handle returns the participant's handle without allocating one
func (r *Registry) Handle(projectID, participantID string) (string, bool) {
	ph, ok := r.lookup(projectID)
	if !ok {
		return "", false
	}
	ph.mu.Lock()
	defer ph.mu.Unlock()

	handle, ok := ph.byParticipant[participantID]
	return handle, ok
}

// Reveal maps a handle back to its participant. Only the award step may
// call it; ranking and notification paths work on handles alone.
func (r *Registry) Reveal(projectID, handle string) (string, error) {
	notFound := fmt.Errorf("registry: handle %s in project %s: %w", handle, projectID, biddingerrors.ErrInvalidSelection)
	ph, ok := r.lookup(projectID)
	if !ok {
		return "", notFound
	}
	ph.mu.Lock()
	defer ph.mu.Unlock()

	participantID, ok := ph.byHandle[handle]
	if !ok {
		return "", notFound
	}
	return participantID, nil
}

// Restore loads previously persisted allocations
func (r *Registry) Restore(pseudonyms []models.Pseudonym) error {
	for _, p := range pseudonyms {
		if err := r.restoreOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) restoreOne(p models.Pseudonym) error {
	ph := r.project(p.ProjectID)
	ph.mu.Lock()
	defer ph.mu.Unlock()

	if existing, ok := ph.byParticipant[p.ParticipantID]; ok {
		if existing == p.Handle {
			return nil
		}
		return fmt.Errorf("registry: conflicting handles for a participant in project %s", p.ProjectID)
	}
	if _, taken := ph.byHandle[p.Handle]; taken {
		return fmt.Errorf("registry: handle %s restored twice in project %s: %w", p.Handle, p.ProjectID, biddingerrors.ErrHandleTaken)
	}
	ph.byParticipant[p.ParticipantID] = p.Handle
	ph.byHandle[p.Handle] = p.ParticipantID
	r.reserve(p.ParticipantID, p.Handle)
	return nil
}

// reserve records handle against participantID and reports false when the
// participant already holds it in some project.
func (r *Registry) reserve(participantID, handle string) bool {
	r.heldMu.Lock()
	defer r.heldMu.Unlock()

	held, ok := r.held[participantID]
	if !ok {
		held = make(map[string]struct{})
		r.held[participantID] = held
	}
	if _, reused := held[handle]; reused {
		return false
	}
	held[handle] = struct{}{}
	return true
}

func (r *Registry) unreserve(participantID, handle string) {
	r.heldMu.Lock()
	defer r.heldMu.Unlock()
	delete(r.held[participantID], handle)
}

package repository

import (
	"bidwar/internal/biddingerrors"
	"bidwar/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
)

//go:generate mockgen -destination=mock_repository.go -package=repository bidwar/internal/repository AuctionDB

// AuctionDB defines the durable storage the bidding engine writes through to
type AuctionDB interface {
	CreateProject(ctx context.Context, project models.Project) error
	GetProject(ctx context.Context, projectID string) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProjectState(ctx context.Context, update models.StateUpdate) error

	// RecordBid appends bid and, when supersededSeq is non-zero, marks that
	// row SUPERSEDED in the same atomic step.
	RecordBid(ctx context.Context, bid models.Bid, supersededSeq int64) error
	WithdrawBid(ctx context.Context, projectID string, sequence int64) error
	GetBidsByProject(ctx context.Context, projectID string) ([]models.Bid, error)

	SavePseudonym(ctx context.Context, pseudonym models.Pseudonym) error
	GetPseudonyms(ctx context.Context, projectID string) ([]models.Pseudonym, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu         sync.RWMutex
	projects   map[string]models.Project
	bids       map[string][]models.Bid                // key: projectID -> ledger rows ordered by sequence
	pseudonyms map[string]map[string]models.Pseudonym // key: projectID -> participantID -> pseudonym
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		projects:   make(map[string]models.Project),
		bids:       make(map[string][]models.Bid),
		pseudonyms: make(map[string]map[string]models.Pseudonym),
	}
}

// CreateProject stores a new project
func (r *MemoryRepo) CreateProject(_ context.Context, project models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.ProjectID]; ok {
		return fmt.Errorf("create project %s: %w", project.ProjectID, biddingerrors.ErrProjectExists)
	}
	r.projects[project.ProjectID] = project
	return nil
}

// GetProject returns a stored project
func (r *MemoryRepo) GetProject(_ context.Context, projectID string) (models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[projectID]
	if !ok {
		return models.Project{}, fmt.Errorf("get project %s: %w", projectID, biddingerrors.ErrProjectNotFound)
	}
	return project, nil
}

// ListProjects returns every stored project ordered by creation time
func (r *MemoryRepo) ListProjects(_ context.Context) ([]models.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ProjectID < projects[j].ProjectID
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// UpdateProjectState persists a state transition
func (r *MemoryRepo) UpdateProjectState(_ context.Context, update models.StateUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[update.ProjectID]
	if !ok {
		return fmt.Errorf("update state of project %s: %w", update.ProjectID, biddingerrors.ErrProjectNotFound)
	}
	project.State = update.State
	project.StateChangedAt = update.ChangedAt
	if update.AwardedHandle != "" {
		project.AwardedHandle = update.AwardedHandle
	}
	if update.CancelReason != "" {
		project.CancelReason = update.CancelReason
	}
	r.projects[update.ProjectID] = project
	return nil
}

// RecordBid appends a ledger row and supersedes the prior one atomically
func (r *MemoryRepo) RecordBid(_ context.Context, bid models.Bid, supersededSeq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[bid.ProjectID]; !ok {
		return fmt.Errorf("record bid for project %s: %w", bid.ProjectID, biddingerrors.ErrProjectNotFound)
	}

	rows := r.bids[bid.ProjectID]
	prior := -1
	if supersededSeq != 0 {
		prior = indexOfSequence(rows, supersededSeq)
		if prior < 0 {
			return fmt.Errorf("supersede bid %d of project %s: %w", supersededSeq, bid.ProjectID, biddingerrors.ErrBidNotFound)
		}
	}
	if indexOfSequence(rows, bid.Sequence) >= 0 {
		return fmt.Errorf("record bid %d of project %s: duplicate sequence", bid.Sequence, bid.ProjectID)
	}

	if prior >= 0 {
		rows[prior].Status = models.BidSuperseded
		rows[prior].UpdatedAt = bid.SubmittedAt
	}
	r.bids[bid.ProjectID] = append(rows, bid)
	return nil
}

// WithdrawBid marks a ledger row WITHDRAWN
func (r *MemoryRepo) WithdrawBid(_ context.Context, projectID string, sequence int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.bids[projectID]
	i := indexOfSequence(rows, sequence)
	if i < 0 {
		return fmt.Errorf("withdraw bid %d of project %s: %w", sequence, projectID, biddingerrors.ErrBidNotFound)
	}
	rows[i].Status = models.BidWithdrawn
	return nil
}

// GetBidsByProject returns the full ledger history of a project
func (r *MemoryRepo) GetBidsByProject(_ context.Context, projectID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.Bid(nil), r.bids[projectID]...), nil
}

// SavePseudonym stores a handle allocation, rejecting a second handle for
// the same pair or a handle already used in the project
func (r *MemoryRepo) SavePseudonym(_ context.Context, pseudonym models.Pseudonym) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byParticipant, ok := r.pseudonyms[pseudonym.ProjectID]
	if !ok {
		byParticipant = make(map[string]models.Pseudonym)
		r.pseudonyms[pseudonym.ProjectID] = byParticipant
	}
	if _, exists := byParticipant[pseudonym.ParticipantID]; exists {
		return fmt.Errorf("save pseudonym for project %s: %w", pseudonym.ProjectID, biddingerrors.ErrHandleTaken)
	}
	for _, p := range byParticipant {
		if p.Handle == pseudonym.Handle {
			return fmt.Errorf("save pseudonym %s: %w", pseudonym.Handle, biddingerrors.ErrHandleTaken)
		}
	}
	byParticipant[pseudonym.ParticipantID] = pseudonym
	return nil
}

// GetPseudonyms returns every handle allocated in a project
func (r *MemoryRepo) GetPseudonyms(_ context.Context, projectID string) ([]models.Pseudonym, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Pseudonym, 0, len(r.pseudonyms[projectID]))
	for _, p := range r.pseudonyms[projectID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func indexOfSequence(rows []models.Bid, sequence int64) int {
	// rows are appended in sequence order
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Sequence >= sequence })
	if i < len(rows) && rows[i].Sequence == sequence {
		return i
	}
	return -1
}

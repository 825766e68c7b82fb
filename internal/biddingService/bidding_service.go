package bidding

import (
	"bidwar/internal/auction"
	"bidwar/internal/biddingerrors"
	"bidwar/internal/dispatcher"
	"bidwar/internal/ledger"
	"bidwar/internal/metrics"
	"bidwar/internal/models"
	"bidwar/internal/pseudonym"
	"bidwar/internal/ranking"
	"bidwar/internal/repository"
	"bidwar/internal/winprob"
	"bidwar/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBidCooldown is the minimum spacing between two submissions of
	// one participant in one project
	DefaultBidCooldown = 2 * time.Second

	// DefaultCoolingOff is applied to projects created without one
	DefaultCoolingOff = 24 * time.Hour

	defaultCancelReason = "cancelled by client"
)

// NewProject describes a project to publish for bidding. A nil CoolingOff
// selects the service default; OpensAt defaults to the creation instant.
type NewProject struct {
	ProjectID       string
	OwnerID         string
	Title           string
	BudgetMin       decimal.Decimal
	BudgetMax       decimal.Decimal
	Currency        string
	OpensAt         time.Time
	ClosesAt        time.Time
	CoolingOff      *time.Duration
	MaxParticipants int
}

// SubmitResult is what a bidder sees after a successful submission
type SubmitResult struct {
	Handle         string     `json:"handle"`
	Rank           int        `json:"rank"`
	WinProbability float64    `json:"win_probability"`
	Bid            models.Bid `json:"bid"`
}

// AwardResult carries the winner revealed by the award step
type AwardResult struct {
	ProjectID     string          `json:"project_id"`
	Handle        string          `json:"handle"`
	ParticipantID string          `json:"participant_id"`
	Amount        decimal.Decimal `json:"amount"`
	AwardedAt     time.Time       `json:"awarded_at"`
}

// Position is one participant's own view of a project
type Position struct {
	ProjectID      string              `json:"project_id"`
	Handle         string              `json:"handle"`
	State          models.AuctionState `json:"state"`
	Active         bool                `json:"active"`
	Rank           int                 `json:"rank,omitempty"`
	Amount         decimal.Decimal     `json:"amount"`
	WinProbability float64             `json:"win_probability"`
	Bidders        int                 `json:"bidders"`
	History        []models.Bid        `json:"history"`
}

// BiddingService is the engine façade. Operations on one project are
// serialized by that project's runtime; different projects never contend
// beyond the registry lookup.
type BiddingService struct {
	repo       repository.AuctionDB
	registry   *pseudonym.Registry
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Metrics
	clock      clockwork.Clock

	bidCooldown       time.Duration
	defaultCoolingOff time.Duration
	subscriberBuffer  int

	mu       sync.RWMutex
	projects map[string]*projectRuntime
	closed   atomic.Bool
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(s *BiddingService) { s.clock = clock }
}

// WithBidCooldown sets the per-participant update cooldown; zero disables it
func WithBidCooldown(d time.Duration) Option {
	return func(s *BiddingService) { s.bidCooldown = d }
}

// WithDefaultCoolingOff sets the cooling-off used when a project has none
func WithDefaultCoolingOff(d time.Duration) Option {
	return func(s *BiddingService) { s.defaultCoolingOff = d }
}

// WithMetrics records engine metrics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BiddingService) { s.metrics = m }
}

// WithSubscriberBuffer sets the event queue length of each subscriber
func WithSubscriberBuffer(n int) Option {
	return func(s *BiddingService) { s.subscriberBuffer = n }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:              repo,
		clock:             clockwork.NewRealClock(),
		bidCooldown:       DefaultBidCooldown,
		defaultCoolingOff: DefaultCoolingOff,
		subscriberBuffer:  dispatcher.DefaultBuffer,
		projects:          make(map[string]*projectRuntime),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = pseudonym.NewRegistry(repo)
	s.dispatcher = dispatcher.New(s.subscriberBuffer, s.metrics)
	return s
}

func (s *BiddingService) now() time.Time {
	return s.clock.Now().UTC()
}

// CreateProject publishes a project for bidding
func (s *BiddingService) CreateProject(ctx context.Context, req NewProject) (models.Project, error) {
	now := s.now()

	project := models.Project{
		ProjectID:       strings.TrimSpace(req.ProjectID),
		OwnerID:         req.OwnerID,
		Title:           req.Title,
		BudgetMin:       req.BudgetMin,
		BudgetMax:       req.BudgetMax,
		Currency:        req.Currency,
		OpensAt:         req.OpensAt.UTC(),
		ClosesAt:        req.ClosesAt.UTC(),
		CoolingOff:      s.defaultCoolingOff,
		MaxParticipants: req.MaxParticipants,
		State:           models.StateOpen,
		StateChangedAt:  now,
		CreatedAt:       now,
	}
	if project.ProjectID == "" {
		project.ProjectID = utils.GenerateID()
	}
	if req.OpensAt.IsZero() {
		project.OpensAt = now
	}
	if req.CoolingOff != nil {
		project.CoolingOff = *req.CoolingOff
	}

	if err := project.Validate(); err != nil {
		return models.Project{}, fmt.Errorf("service: %w - %v", biddingerrors.ErrInvalidProject, err)
	}
	if !project.ClosesAt.After(now) {
		return models.Project{}, fmt.Errorf("service: %w - close timestamp is in the past", biddingerrors.ErrInvalidProject)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return models.Project{}, fmt.Errorf("service: engine is shut down")
	}
	if _, exists := s.projects[project.ProjectID]; exists {
		return models.Project{}, fmt.Errorf("service: %w - %s", biddingerrors.ErrProjectExists, project.ProjectID)
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return models.Project{}, fmt.Errorf("service: failed to create project %s: %w", project.ProjectID, err)
	}

	rt := s.newRuntime(project)
	rt.mu.Lock()
	s.armLocked(rt)
	rt.publishSnapshotLocked()
	rt.mu.Unlock()
	s.projects[project.ProjectID] = rt

	utils.Info("Project published", map[string]any{
		"projectID": project.ProjectID,
		"opensAt":   project.OpensAt,
		"closesAt":  project.ClosesAt,
		"locksAt":   project.LocksAt(),
	})
	return project, nil
}

// SubmitBid places or updates the participant's bid and returns its
// handle, rank and win probability right after the recompute.
func (s *BiddingService) SubmitBid(ctx context.Context, projectID, participantID string, amount decimal.Decimal) (SubmitResult, error) {
	result, err := s.submitBid(ctx, projectID, participantID, amount)
	s.metrics.ObserveBid(resultLabel(err))
	return result, err
}

func (s *BiddingService) submitBid(ctx context.Context, projectID, participantID string, amount decimal.Decimal) (SubmitResult, error) {
	if projectID == "" || participantID == "" {
		return SubmitResult{}, fmt.Errorf("service: %w - missing projectID or participantID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return SubmitResult{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}

	rt, err := s.runtime(projectID)
	if err != nil {
		return SubmitResult{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := s.now()
	s.advanceLocked(ctx, rt, now)

	if err := rt.machine.Accepting(now); err != nil {
		return SubmitResult{}, fmt.Errorf("service: %w", err)
	}
	// range and cap first, so a rejected bid never allocates a handle
	if err := rt.ledger.Validate(participantID, amount); err != nil {
		return SubmitResult{}, fmt.Errorf("service: %w", err)
	}

	handle, err := s.registry.Resolve(ctx, projectID, participantID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("service: failed to resolve handle in project %s: %w", projectID, err)
	}

	bid, err := rt.ledger.Append(ctx, ledger.Submission{
		State:         rt.machine.State(),
		ParticipantID: participantID,
		Handle:        handle,
		Amount:        amount,
		At:            now,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("service: %w", err)
	}

	annotated := s.recomputeLocked(rt, now)
	entry, _ := ranking.Find(annotated, handle)

	utils.Debug("Bid recorded", map[string]any{
		"projectID": projectID,
		"handle":    handle,
		"sequence":  bid.Sequence,
		"rank":      entry.Rank,
	})

	return SubmitResult{
		Handle:         handle,
		Rank:           entry.Rank,
		WinProbability: entry.WinProbability,
		Bid:            bid,
	}, nil
}

// WithdrawBid withdraws the participant's ACTIVE bid
func (s *BiddingService) WithdrawBid(ctx context.Context, projectID, participantID string) error {
	if projectID == "" || participantID == "" {
		return fmt.Errorf("service: %w - missing projectID or participantID", biddingerrors.ErrInvalidBid)
	}

	rt, err := s.runtime(projectID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := s.now()
	s.advanceLocked(ctx, rt, now)

	if err := rt.machine.Accepting(now); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if _, err := rt.ledger.Withdraw(ctx, rt.machine.State(), participantID, now); err != nil {
		return fmt.Errorf("service: %w", err)
	}

	s.metrics.IncWithdrawal()
	s.recomputeLocked(rt, now)
	return nil
}

// GetRankedView returns the current ranking with fresh win probabilities.
// It reads the latest snapshot and never waits for a writer.
func (s *BiddingService) GetRankedView(_ context.Context, projectID string) ([]models.RankedBid, error) {
	rt, err := s.runtime(projectID)
	if err != nil {
		return nil, err
	}
	snap := rt.snap.Load()
	return snap.annotate(s.now()), nil
}

// GetAuctionState returns the lifecycle state of a project
func (s *BiddingService) GetAuctionState(_ context.Context, projectID string) (models.AuctionState, error) {
	rt, err := s.runtime(projectID)
	if err != nil {
		return "", err
	}
	return rt.snap.Load().project.State, nil
}

// GetProject returns a project with its current state
func (s *BiddingService) GetProject(_ context.Context, projectID string) (models.Project, error) {
	rt, err := s.runtime(projectID)
	if err != nil {
		return models.Project{}, err
	}
	return rt.snap.Load().project, nil
}

// GetPosition returns the participant's handle, standing and bid history
func (s *BiddingService) GetPosition(_ context.Context, projectID, participantID string) (Position, error) {
	if participantID == "" {
		return Position{}, fmt.Errorf("service: %w - missing participantID", biddingerrors.ErrInvalidBid)
	}
	rt, err := s.runtime(projectID)
	if err != nil {
		return Position{}, err
	}

	handle, ok := s.registry.Handle(projectID, participantID)
	if !ok {
		return Position{}, fmt.Errorf("service: %w - participant never bid in project %s", biddingerrors.ErrNoActiveBid, projectID)
	}

	rt.mu.Lock()
	history := rt.ledger.History(participantID)
	_, active := rt.ledger.ActiveFor(participantID)
	rt.mu.Unlock()

	snap := rt.snap.Load()
	view := snap.annotate(s.now())
	pos := Position{
		ProjectID: projectID,
		Handle:    handle,
		State:     snap.project.State,
		Active:    active,
		Bidders:   len(view),
		History:   history,
	}
	if entry, ok := ranking.Find(view, handle); ok {
		pos.Rank = entry.Rank
		pos.Amount = entry.Amount
		pos.WinProbability = entry.WinProbability
	}
	return pos, nil
}

// Award selects the winning handle of a LOCKED project and reveals the
// participant behind it. It succeeds at most once per project.
func (s *BiddingService) Award(ctx context.Context, projectID, handle string) (AwardResult, error) {
	rt, err := s.runtime(projectID)
	if err != nil {
		return AwardResult{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := s.now()
	s.advanceLocked(ctx, rt, now)

	if state := rt.machine.State(); state != models.StateLocked {
		return AwardResult{}, fmt.Errorf("service: %w - cannot award a %s auction", biddingerrors.ErrInvalidState, state)
	}
	entry, ok := ranking.Find(rt.view, handle)
	if !ok {
		return AwardResult{}, fmt.Errorf("service: %w - %q", biddingerrors.ErrInvalidSelection, handle)
	}
	participantID, err := s.registry.Reveal(projectID, handle)
	if err != nil {
		return AwardResult{}, fmt.Errorf("service: %w", err)
	}

	tr := auction.Transition{From: models.StateLocked, To: models.StateAwarded, At: now}
	if err := s.commitLocked(ctx, rt, tr, handle); err != nil {
		return AwardResult{}, err
	}

	utils.Info("Project awarded", map[string]any{"projectID": projectID, "handle": handle})
	return AwardResult{
		ProjectID:     projectID,
		Handle:        handle,
		ParticipantID: participantID,
		Amount:        entry.Amount,
		AwardedAt:     now,
	}, nil
}

// Cancel moves a non-terminal project to CANCELLED
func (s *BiddingService) Cancel(ctx context.Context, projectID, reason string) error {
	rt, err := s.runtime(projectID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := s.now()
	s.advanceLocked(ctx, rt, now)

	if state := rt.machine.State(); state.IsTerminal() {
		return fmt.Errorf("service: %w - auction already %s", biddingerrors.ErrInvalidState, state)
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultCancelReason
	}

	tr := auction.Transition{From: rt.machine.State(), To: models.StateCancelled, At: now, Reason: reason}
	if err := s.commitLocked(ctx, rt, tr, ""); err != nil {
		return err
	}

	utils.Info("Project cancelled", map[string]any{"projectID": projectID, "reason": reason})
	return nil
}

// Subscribe streams the project's events until ctx is done or the project
// reaches a terminal state.
func (s *BiddingService) Subscribe(ctx context.Context, projectID string) (*dispatcher.Subscription, error) {
	rt, err := s.runtime(projectID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.project.State.IsTerminal() {
		return s.dispatcher.Ended(projectID), nil
	}
	return s.dispatcher.Subscribe(ctx, projectID), nil
}

// Close stops every project timer and ends all subscriptions
func (s *BiddingService) Close() {
	s.mu.Lock()
	s.closed.Store(true)
	runtimes := make([]*projectRuntime, 0, len(s.projects))
	for _, rt := range s.projects {
		runtimes = append(runtimes, rt)
	}
	s.mu.Unlock()

	for _, rt := range runtimes {
		rt.mu.Lock()
		rt.stopTimerLocked()
		rt.mu.Unlock()
	}
	s.dispatcher.Close()
}

func (s *BiddingService) runtime(projectID string) (*projectRuntime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("service: %w - %s", biddingerrors.ErrProjectNotFound, projectID)
	}
	return rt, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case biddingerrors.IsValidation(err), biddingerrors.IsStateError(err),
		errors.Is(err, biddingerrors.ErrProjectNotFound):
		return metrics.ResultRejected
	default:
		return metrics.ResultFailed
	}
}

// annotate ranks a stored view for display at now
func annotate(view []models.RankedBid, project models.Project, now time.Time) []models.RankedBid {
	stats := ranking.Stats(view, now, project.OpensAt, project.ClosesAt)
	return winprob.Annotate(view, stats)
}

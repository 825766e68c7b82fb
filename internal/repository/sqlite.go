package repository

import (
	"bidwar/internal/biddingerrors"
	"bidwar/internal/models"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLRepo is a SQLite-backed implementation of AuctionDB
type SQLRepo struct {
	db *gorm.DB
}

// NewSQLRepo opens (or creates) the database at path and migrates the
// schema. An empty path opens a private in-memory database.
func NewSQLRepo(path string) (*SQLRepo, error) {
	dsn := "file::memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		// WAL journal mode so readers do not block the single writer
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Project{}, &models.Bid{}, &models.Pseudonym{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLRepo{db: db}, nil
}

// Close releases the underlying database handle
func (r *SQLRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateProject stores a new project
func (r *SQLRepo) CreateProject(ctx context.Context, project models.Project) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("project_id = ?", project.ProjectID).Count(&count).Error; err != nil {
		return fmt.Errorf("create project %s: %w", project.ProjectID, err)
	}
	if count > 0 {
		return fmt.Errorf("create project %s: %w", project.ProjectID, biddingerrors.ErrProjectExists)
	}
	if err := r.db.WithContext(ctx).Create(&project).Error; err != nil {
		return fmt.Errorf("create project %s: %w", project.ProjectID, err)
	}
	return nil
}

// GetProject returns a stored project
func (r *SQLRepo) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Project{}, fmt.Errorf("get project %s: %w", projectID, biddingerrors.ErrProjectNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return project, nil
}

// ListProjects returns every stored project ordered by creation time
func (r *SQLRepo) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Order("created_at, project_id").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectState persists a state transition
func (r *SQLRepo) UpdateProjectState(ctx context.Context, update models.StateUpdate) error {
	values := map[string]any{
		"state":            update.State,
		"state_changed_at": update.ChangedAt,
	}
	if update.AwardedHandle != "" {
		values["awarded_handle"] = update.AwardedHandle
	}
	if update.CancelReason != "" {
		values["cancel_reason"] = update.CancelReason
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("project_id = ?", update.ProjectID).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update state of project %s: %w", update.ProjectID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update state of project %s: %w", update.ProjectID, biddingerrors.ErrProjectNotFound)
	}
	return nil
}

// RecordBid appends a ledger row and supersedes the prior one in one transaction
func (r *SQLRepo) RecordBid(ctx context.Context, bid models.Bid, supersededSeq int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("project_id = ?", bid.ProjectID).Count(&count).Error; err != nil {
			return fmt.Errorf("record bid for project %s: %w", bid.ProjectID, err)
		}
		if count == 0 {
			return fmt.Errorf("record bid for project %s: %w", bid.ProjectID, biddingerrors.ErrProjectNotFound)
		}

		if supersededSeq != 0 {
			res := tx.Model(&models.Bid{}).
				Where("project_id = ? AND sequence = ? AND status = ?", bid.ProjectID, supersededSeq, models.BidActive).
				Updates(map[string]any{"status": models.BidSuperseded, "updated_at": bid.SubmittedAt})
			if res.Error != nil {
				return fmt.Errorf("supersede bid %d of project %s: %w", supersededSeq, bid.ProjectID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("supersede bid %d of project %s: %w", supersededSeq, bid.ProjectID, biddingerrors.ErrBidNotFound)
			}
		}

		if err := tx.Create(&bid).Error; err != nil {
			return fmt.Errorf("record bid %d of project %s: %w", bid.Sequence, bid.ProjectID, err)
		}
		return nil
	})
}

// WithdrawBid marks a ledger row WITHDRAWN
func (r *SQLRepo) WithdrawBid(ctx context.Context, projectID string, sequence int64) error {
	res := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("project_id = ? AND sequence = ? AND status = ?", projectID, sequence, models.BidActive).
		Update("status", models.BidWithdrawn)
	if res.Error != nil {
		return fmt.Errorf("withdraw bid %d of project %s: %w", sequence, projectID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("withdraw bid %d of project %s: %w", sequence, projectID, biddingerrors.ErrBidNotFound)
	}
	return nil
}

// GetBidsByProject returns the full ledger history of a project
func (r *SQLRepo) GetBidsByProject(ctx context.Context, projectID string) ([]models.Bid, error) {
	var bids []models.Bid
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("sequence").Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("get bids for project %s: %w", projectID, err)
	}
	return bids, nil
}

// SavePseudonym stores a handle allocation
func (r *SQLRepo) SavePseudonym(ctx context.Context, pseudonym models.Pseudonym) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Pseudonym{}).
		Where("project_id = ? AND (participant_id = ? OR handle = ?)", pseudonym.ProjectID, pseudonym.ParticipantID, pseudonym.Handle).
		Count(&count).Error; err != nil {
		return fmt.Errorf("save pseudonym for project %s: %w", pseudonym.ProjectID, err)
	}
	if count > 0 {
		return fmt.Errorf("save pseudonym for project %s: %w", pseudonym.ProjectID, biddingerrors.ErrHandleTaken)
	}
	if err := r.db.WithContext(ctx).Create(&pseudonym).Error; err != nil {
		return fmt.Errorf("save pseudonym for project %s: %w", pseudonym.ProjectID, err)
	}
	return nil
}

// GetPseudonyms returns every handle allocated in a project
func (r *SQLRepo) GetPseudonyms(ctx context.Context, projectID string) ([]models.Pseudonym, error) {
	var out []models.Pseudonym
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("handle").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("get pseudonyms for project %s: %w", projectID, err)
	}
	return out, nil
}

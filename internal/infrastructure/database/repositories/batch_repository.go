package repositories

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alejandroruanova/review-refinery/internal/core/domain"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// BatchRepository persists the batch ledger
type BatchRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBatchRepository creates a new repository instance
func NewBatchRepository(db *gorm.DB, logger *slog.Logger) *BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// batchResetColumns are overwritten when a batch ID is created again
var batchResetColumns = []string{
	"original_filename", "file_path", "output_path", "file_hash",
	"refinery_version", "text_column", "status", "total_records",
	"processed_records", "duplicate_records", "cache_hits", "error_message",
	"config", "updated_at", "completed_at",
}

// Create inserts a batch, assigning an ID when it has none. Creating an
// existing ID again, as a retried task does, resets that row to the new
// values instead of failing.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	if batch.Status == "" {
		batch.Status = domain.BatchStatusUploaded
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(batchResetColumns),
		}).
		Create(batch).
		Error
	if err != nil {
		r.logger.Error("failed to create batch",
			slog.String("file", batch.OriginalFilename),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}
	return nil
}

// UpdateProgress records a status transition. Terminal statuses also set
// completed_at.
func (r *BatchRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	if !domain.IsValidStatus(progress.Status) {
		return apperrors.BadRequest("invalid batch status: " + progress.Status)
	}

	updates := map[string]interface{}{
		"status":            progress.Status,
		"total_records":     progress.TotalRecords,
		"processed_records": progress.ProcessedRecords,
		"duplicate_records": progress.DuplicateRecords,
		"cache_hits":        progress.CacheHits,
		"error_message":     progress.ErrorMessage,
	}
	if progress.OutputPath != "" {
		updates["output_path"] = progress.OutputPath
	}
	if progress.Status == domain.BatchStatusCompleted || progress.Status == domain.BatchStatusFailed {
		updates["completed_at"] = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("failed to update batch",
			slog.String("batch_id", id.String()),
			slog.String("status", progress.Status),
			slog.Any("error", result.Error))
		return apperrors.DatabaseError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.RecordNotFound("batch " + id.String())
	}

	return nil
}

// Get loads a batch by ID
func (r *BatchRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	var batch domain.Batch

	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("batch " + id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return &batch, nil
}

// ListRecent returns the most recently created batches
func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]domain.Batch, error) {
	var batches []domain.Batch

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&batches).
		Error
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	return batches, nil
}

package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/review-refinery/internal/core/domain"
	"github.com/alejandroruanova/review-refinery/internal/core/services/deduplication"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

const hashInsertBatchSize = 1000

// DedupHashRepository implements deduplication.HashRepository using GORM
type DedupHashRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ deduplication.HashRepository = (*DedupHashRepository)(nil)

// NewDedupHashRepository creates a new repository instance
func NewDedupHashRepository(db *gorm.DB, logger *slog.Logger) *DedupHashRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DedupHashRepository{
		db:     db,
		logger: logger,
	}
}

// CheckHashExists reports whether a batch other than excludeBatchID kept a
// review with this hash
func (r *DedupHashRepository) CheckHashExists(ctx context.Context, hash string, excludeBatchID uuid.UUID) (bool, error) {
	var found []uuid.UUID

	err := r.db.WithContext(ctx).
		Model(&domain.DedupHash{}).
		Where("hash = ? AND kept = ? AND batch_id <> ?", hash, true, excludeBatchID).
		Limit(1).
		Pluck("batch_id", &found).
		Error

	if err != nil {
		r.logger.Error("failed to check hash existence",
			slog.String("hash", hash),
			slog.Any("error", err))
		return false, apperrors.DatabaseError(err)
	}

	return len(found) > 0, nil
}

// SaveHashes replaces the deduplication hashes of a batch in one transaction
func (r *DedupHashRepository) SaveHashes(ctx context.Context, batchID uuid.UUID, hashes []deduplication.HashEntry) error {
	rows := make([]domain.DedupHash, 0, len(hashes))
	for _, entry := range hashes {
		rows = append(rows, domain.DedupHash{
			ID:               uuid.New(),
			BatchID:          batchID,
			Hash:             entry.Hash,
			OriginalRowIndex: entry.OriginalRowIndex,
			Kept:             entry.Kept,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batchID).Delete(&domain.DedupHash{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous hashes: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, hashInsertBatchSize).Error
	})

	if err != nil {
		r.logger.Error("failed to save hashes",
			slog.String("batch_id", batchID.String()),
			slog.Int("hash_count", len(hashes)),
			slog.Any("error", err))
		return apperrors.DatabaseError(fmt.Errorf("failed to insert hashes: %w", err))
	}

	r.logger.Debug("saved deduplication hashes",
		slog.String("batch_id", batchID.String()),
		slog.Int("hash_count", len(hashes)))

	return nil
}

// GetBatchHashes retrieves all hashes for a batch ordered by row
func (r *DedupHashRepository) GetBatchHashes(ctx context.Context, batchID uuid.UUID) ([]deduplication.HashEntry, error) {
	var rows []domain.DedupHash

	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("original_row_index ASC").
		Find(&rows).
		Error

	if err != nil {
		r.logger.Error("failed to get batch hashes",
			slog.String("batch_id", batchID.String()),
			slog.Any("error", err))
		return nil, apperrors.DatabaseError(err)
	}

	entries := make([]deduplication.HashEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, deduplication.HashEntry{
			Hash:             row.Hash,
			OriginalRowIndex: row.OriginalRowIndex,
			Kept:             row.Kept,
		})
	}

	return entries, nil
}

// DeleteBatchHashes removes all hashes for a batch
func (r *DedupHashRepository) DeleteBatchHashes(ctx context.Context, batchID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&domain.DedupHash{}).
		Error

	if err != nil {
		r.logger.Error("failed to delete batch hashes",
			slog.String("batch_id", batchID.String()),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	return nil
}

// GetDuplicateCount returns the number of reviews dropped from a batch
func (r *DedupHashRepository) GetDuplicateCount(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.DedupHash{}).
		Where("batch_id = ? AND kept = ?", batchID, false).
		Count(&count).
		Error

	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}

	return count, nil
}

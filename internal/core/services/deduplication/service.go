package deduplication

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service implements the Deduplicator interface
type Service struct {
	config   Config
	hashRepo HashRepository
	logger   *slog.Logger
}

// NewService creates a new deduplication service. hashRepo may be nil,
// in which case level 2 and hash storage are skipped.
func NewService(config Config, hashRepo HashRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   config,
		hashRepo: hashRepo,
		logger:   logger,
	}
}

// Deduplicate performs two-level deduplication. Hashes are written into
// records in place; the returned records keep their input order.
func (s *Service) Deduplicate(ctx context.Context, batchID uuid.UUID, records []Record) (*DeduplicationResult, error) {
	startTime := time.Now()

	s.logger.Info("starting deduplication",
		slog.String("batch_id", batchID.String()),
		slog.Int("record_count", len(records)),
		slog.String("strategy", string(s.config.Strategy)))

	if len(records) == 0 {
		return &DeduplicationResult{
			Strategy: s.config.Strategy,
			Records:  []Record{},
		}, nil
	}

	for i := range records {
		records[i].Hash = HashText(records[i].Text, s.config)
	}

	// Level 1: Within-batch deduplication
	level1 := s.deduplicateLevel1(records)

	s.logger.Info("level 1 deduplication completed",
		slog.Int("duplicates_removed", level1.RemovedCount))

	finalRecords := level1.Records
	level2Duplicates := 0

	if s.config.EnableLevel2 && s.hashRepo != nil {
		level2, err := s.deduplicateLevel2(ctx, batchID, finalRecords)
		if err != nil {
			return nil, fmt.Errorf("level 2 deduplication failed: %w", err)
		}
		finalRecords = level2.Records
		level2Duplicates = level2.RemovedCount

		s.logger.Info("level 2 deduplication completed",
			slog.Int("duplicates_removed", level2Duplicates))
	}

	if s.config.StoreHashes && s.hashRepo != nil {
		if err := s.storeHashes(ctx, batchID, records, finalRecords); err != nil {
			s.logger.Error("failed to store hashes", slog.Any("error", err))
		}
	}

	processingTime := time.Since(startTime).Milliseconds()

	result := &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(finalRecords),
		RemovedCount:      len(records) - len(finalRecords),
		Strategy:          s.config.Strategy,
		Records:           finalRecords,
		Stats: DeduplicationStats{
			Level1Duplicates: level1.RemovedCount,
			Level2Duplicates: level2Duplicates,
			UniqueRecords:    len(finalRecords),
			ProcessingTimeMs: processingTime,
		},
	}

	s.logger.Info("deduplication completed",
		slog.Int("original_count", result.OriginalCount),
		slog.Int("final_count", result.DeduplicatedCount),
		slog.Int("removed_count", result.RemovedCount),
		slog.Int64("processing_time_ms", processingTime))

	return result, nil
}

// deduplicateLevel1 keeps the first occurrence of every hash
func (s *Service) deduplicateLevel1(records []Record) *DeduplicationResult {
	seen := make(map[string]struct{}, len(records))
	unique := make([]Record, 0, len(records))
	duplicates := 0

	for _, record := range records {
		if _, ok := seen[record.Hash]; ok {
			duplicates++
			s.logger.Debug("level 1 duplicate found",
				slog.String("hash", record.Hash),
				slog.Int("row_index", record.RowIndex))
			continue
		}
		seen[record.Hash] = struct{}{}
		unique = append(unique, record)
	}

	return &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(unique),
		RemovedCount:      duplicates,
		Records:           unique,
	}
}

// deduplicateLevel2 drops records already kept by another batch. Hashes
// stored by batchID itself, e.g. by a failed earlier attempt, never count.
// Lookup failures keep the record.
func (s *Service) deduplicateLevel2(ctx context.Context, batchID uuid.UUID, records []Record) (*DeduplicationResult, error) {
	unique := make([]Record, 0, len(records))
	duplicates := 0

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exists, err := s.hashRepo.CheckHashExists(ctx, record.Hash, batchID)
		if err != nil {
			s.logger.Error("failed to check hash existence",
				slog.String("hash", record.Hash),
				slog.Any("error", err))
			unique = append(unique, record)
			continue
		}

		if exists {
			duplicates++
			s.logger.Debug("level 2 duplicate found",
				slog.String("hash", record.Hash),
				slog.Int("row_index", record.RowIndex))
			continue
		}
		unique = append(unique, record)
	}

	return &DeduplicationResult{
		OriginalCount:     len(records),
		DeduplicatedCount: len(unique),
		RemovedCount:      duplicates,
		Records:           unique,
	}, nil
}

func (s *Service) storeHashes(ctx context.Context, batchID uuid.UUID, original, final []Record) error {
	kept := make(map[int]bool, len(final))
	for _, record := range final {
		kept[record.RowIndex] = true
	}

	entries := make([]HashEntry, 0, len(original))
	for _, record := range original {
		entries = append(entries, HashEntry{
			Hash:             record.Hash,
			OriginalRowIndex: record.RowIndex,
			Kept:             kept[record.RowIndex],
		})
	}

	return s.hashRepo.SaveHashes(ctx, batchID, entries)
}

// GetConfig returns the current configuration
func (s *Service) GetConfig() Config {
	return s.config
}

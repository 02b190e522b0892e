package batch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/alejandroruanova/review-refinery/internal/core/domain"
	"github.com/alejandroruanova/review-refinery/internal/core/services/deduplication"
	"github.com/alejandroruanova/review-refinery/internal/core/services/refinery"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/cache"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// Dependencies wires a Service. Only Pipeline is required.
type Dependencies struct {
	Pipeline       *refinery.Pipeline
	RefineryConfig map[string]interface{} // used to build other refinery versions
	Parsers        *parsers.ParserFactory
	Writers        *parsers.WriterFactory
	Cache          ResultCache
	Deduplicator   deduplication.Deduplicator
	Batches        BatchRepository
	Logger         *slog.Logger
}

// Service refines review files end to end
type Service struct {
	pipeline       *refinery.Pipeline
	refineryConfig map[string]interface{}
	parsers        *parsers.ParserFactory
	writers        *parsers.WriterFactory
	cache          ResultCache
	deduplicator   deduplication.Deduplicator
	batches        BatchRepository
	logger         *slog.Logger
}

// NewService creates a batch service, filling optional dependencies
func NewService(deps Dependencies) (*Service, error) {
	if deps.Pipeline == nil {
		return nil, apperrors.InvalidConfig("batch service requires a pipeline")
	}

	s := &Service{
		pipeline:       deps.Pipeline,
		refineryConfig: deps.RefineryConfig,
		parsers:        deps.Parsers,
		writers:        deps.Writers,
		cache:          deps.Cache,
		deduplicator:   deps.Deduplicator,
		batches:        deps.Batches,
		logger:         deps.Logger,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.parsers == nil {
		s.parsers = parsers.NewParserFactory(parsers.ReviewParserConfig())
	}
	if s.writers == nil {
		s.writers = parsers.NewWriterFactory()
	}
	if s.deduplicator == nil {
		config := deduplication.DefaultConfig()
		config.StoreHashes = false
		s.deduplicator = deduplication.NewService(config, nil, s.logger)
	}

	return s, nil
}

// Run parses the input, cleans the text column, optionally drops
// duplicates, and writes [cleaned, original] rows to the output.
func (s *Service) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()

	if err := job.Validate(); err != nil {
		return nil, err
	}
	job = job.withDefaults()
	if job.BatchID == uuid.Nil {
		job.BatchID = uuid.New()
	}

	pipeline, err := s.pipelineFor(job.RefineryVersion)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		slog.String("batch_id", job.BatchID.String()),
		slog.String("input", job.InputPath))

	fileHash, err := hashFile(job.InputPath)
	if err != nil {
		return nil, err
	}

	report := &Report{
		BatchID:    job.BatchID,
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
		Refinery:   pipeline.GetVersion(),
		Format:     parsers.FormatExt(job.InputPath),
		FileHash:   fileHash,
	}

	if err := s.createBatch(ctx, job, report); err != nil {
		return nil, err
	}

	if err := s.run(ctx, job, pipeline, report, logger); err != nil {
		logger.Error("batch failed", slog.Any("error", err))
		s.updateProgress(ctx, job.BatchID, domain.BatchStatusFailed, report, err.Error())
		return nil, err
	}

	report.Duration = time.Since(start)
	s.updateProgress(ctx, job.BatchID, domain.BatchStatusCompleted, report, "")

	logger.Info("batch completed",
		slog.String("output", report.OutputPath),
		slog.Int("total_records", report.TotalRecords),
		slog.Int("written_records", report.WrittenRecords),
		slog.Int("duplicates", report.DuplicateRecords),
		slog.Int("cache_hits", report.CacheHits),
		slog.Duration("duration", report.Duration))

	return report, nil
}

func (s *Service) run(ctx context.Context, job Job, pipeline *refinery.Pipeline, report *Report, logger *slog.Logger) error {
	result, err := s.parsers.ParseFile(ctx, job.InputPath)
	if err != nil {
		if apperrors.IsAppError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return apperrors.FileParseError(err, filepath.Base(job.InputPath))
	}

	if len(result.Records) > 0 && !result.HasColumn(job.Column) {
		return apperrors.ColumnNotFound(job.Column, result.Columns)
	}

	report.TotalRecords = len(result.Records)
	report.SkippedRows = result.SkippedRows

	logger.Info("input parsed",
		slog.String("format", result.Format),
		slog.Int("records", report.TotalRecords),
		slog.Int("skipped_rows", report.SkippedRows))

	originals := make([]string, len(result.Records))
	for i, record := range result.Records {
		originals[i] = record.Text(job.Column)
	}

	s.updateProgress(ctx, job.BatchID, domain.BatchStatusCleaning, report, "")

	cleaned, hits, err := s.clean(ctx, pipeline, originals, job.Workers)
	if err != nil {
		return err
	}
	report.CacheHits = hits

	keep := allRows(len(cleaned))
	if job.Deduplicate {
		s.updateProgress(ctx, job.BatchID, domain.BatchStatusDeduplicating, report, "")

		records := make([]deduplication.Record, len(cleaned))
		for i, text := range cleaned {
			records[i] = deduplication.Record{RowIndex: i, Text: text}
		}

		dedup, err := s.deduplicator.Deduplicate(ctx, job.BatchID, records)
		if err != nil {
			return err
		}
		keep = dedup.Kept()
		report.DuplicateRecords = dedup.RemovedCount
	}

	rows := make([][]string, 0, len(keep))
	for _, i := range keep {
		rows = append(rows, []string{cleaned[i], originals[i]})
	}

	if err := s.writers.WriteFile(ctx, job.OutputPath, []string{job.OutputColumn, job.Column}, rows); err != nil {
		return err
	}
	report.WrittenRecords = len(rows)

	return nil
}

// clean runs the pipeline over texts. Each distinct text is cleaned once;
// cached results are reused and cache failures are treated as misses.
func (s *Service) clean(ctx context.Context, pipeline *refinery.Pipeline, texts []string, workers int) ([]string, int, error) {
	cleaned := make([]string, len(texts))
	positions := make(map[string][]int, len(texts))
	pending := make([]string, 0, len(texts))

	for i, text := range texts {
		if _, seen := positions[text]; !seen {
			pending = append(pending, text)
		}
		positions[text] = append(positions[text], i)
	}

	version := pipeline.GetVersion()
	hits := 0

	if s.cache != nil {
		misses := pending[:0]
		for _, text := range pending {
			value, ok, err := s.cache.Get(ctx, cache.Key(version, text))
			if err != nil {
				s.logger.Warn("result cache lookup failed", slog.Any("error", err))
			}
			if err != nil || !ok {
				misses = append(misses, text)
				continue
			}
			hits += len(positions[text])
			for _, i := range positions[text] {
				cleaned[i] = value
			}
		}
		pending = misses
	}

	results, err := pipeline.CleanBatchContext(ctx, pending, workers)
	if err != nil {
		return nil, 0, err
	}

	for j, text := range pending {
		for _, i := range positions[text] {
			cleaned[i] = results[j]
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, cache.Key(version, text), results[j]); err != nil {
				s.logger.Warn("result cache store failed", slog.Any("error", err))
			}
		}
	}

	return cleaned, hits, nil
}

func (s *Service) pipelineFor(version string) (*refinery.Pipeline, error) {
	if version == "" {
		return s.pipeline, nil
	}

	resolved, ok := refinery.Resolve(version)
	if !ok {
		return nil, apperrors.RefineryNotFound(version, refinery.ListAvailable())
	}
	if resolved == s.pipeline.GetVersion() {
		return s.pipeline, nil
	}

	return refinery.NewPipeline(resolved, s.refineryConfig)
}

func (s *Service) createBatch(ctx context.Context, job Job, report *Report) error {
	if s.batches == nil {
		return nil
	}

	return s.batches.Create(ctx, &domain.Batch{
		ID:               job.BatchID,
		OriginalFilename: filepath.Base(job.InputPath),
		FilePath:         job.InputPath,
		OutputPath:       job.OutputPath,
		FileHash:         report.FileHash,
		RefineryVersion:  report.Refinery,
		TextColumn:       job.Column,
		Status:           domain.BatchStatusUploaded,
		Config: domain.JSONB{
			"output_column": job.OutputColumn,
			"deduplicate":   job.Deduplicate,
			"workers":       job.Workers,
		},
	})
}

// updateProgress records a transition. Ledger failures never fail the job.
func (s *Service) updateProgress(ctx context.Context, id uuid.UUID, status string, report *Report, message string) {
	if s.batches == nil {
		return
	}

	progress := domain.BatchProgress{
		Status:           status,
		TotalRecords:     report.TotalRecords,
		ProcessedRecords: report.WrittenRecords,
		DuplicateRecords: report.DuplicateRecords,
		CacheHits:        report.CacheHits,
		ErrorMessage:     message,
	}
	if status == domain.BatchStatusCompleted {
		progress.OutputPath = report.OutputPath
	}

	// a cancelled job still gets its failure recorded
	if err := s.batches.UpdateProgress(context.WithoutCancel(ctx), id, progress); err != nil {
		s.logger.Error("failed to update batch progress",
			slog.String("batch_id", id.String()),
			slog.String("status", status),
			slog.Any("error", err))
	}
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", apperrors.InvalidFile(fmt.Sprintf("cannot open %s: %v", path, err))
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", apperrors.InvalidFile(fmt.Sprintf("cannot read %s: %v", path, err))
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

package batch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/review-refinery/internal/core/domain"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// Default column names of the review files
const (
	DefaultTextColumn   = "content"
	DefaultOutputColumn = "pre_content"
)

// Job describes one file to refine. It is also the payload of queued tasks.
type Job struct {
	BatchID         uuid.UUID `json:"batch_id"`
	InputPath       string    `json:"input_path"`
	OutputPath      string    `json:"output_path"`
	Column          string    `json:"column,omitempty"`
	OutputColumn    string    `json:"output_column,omitempty"`
	Deduplicate     bool      `json:"deduplicate,omitempty"`
	Workers         int       `json:"workers,omitempty"`
	RefineryVersion string    `json:"refinery_version,omitempty"`
}

// withDefaults fills empty columns
func (j Job) withDefaults() Job {
	if j.Column == "" {
		j.Column = DefaultTextColumn
	}
	if j.OutputColumn == "" {
		j.OutputColumn = DefaultOutputColumn
	}
	return j
}

// Validate checks the job before any file is touched
func (j Job) Validate() error {
	j = j.withDefaults()

	if j.InputPath == "" {
		return apperrors.BadRequest("input path is required")
	}
	if j.OutputPath == "" {
		return apperrors.BadRequest("output path is required")
	}
	if filepath.Clean(j.InputPath) == filepath.Clean(j.OutputPath) {
		return apperrors.BadRequest("output path must differ from input path")
	}
	if j.Column == j.OutputColumn {
		return apperrors.BadRequest("output column must differ from the text column")
	}
	if j.Workers < 0 {
		return apperrors.BadRequest("workers must not be negative")
	}
	return nil
}

// Report summarizes a finished job
type Report struct {
	BatchID          uuid.UUID     `json:"batch_id"`
	InputPath        string        `json:"input_path"`
	OutputPath       string        `json:"output_path"`
	Refinery         string        `json:"refinery"`
	Format           string        `json:"format"`
	FileHash         string        `json:"file_hash"`
	TotalRecords     int           `json:"total_records"`
	SkippedRows      int           `json:"skipped_rows"`
	WrittenRecords   int           `json:"written_records"`
	DuplicateRecords int           `json:"duplicate_records"`
	CacheHits        int           `json:"cache_hits"`
	Duration         time.Duration `json:"duration"`
}

// ResultCache stores cleaned texts by key. Implementations must be safe
// for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// BatchRepository records batch progress
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error
}

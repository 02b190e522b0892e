package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/review-refinery/internal/core/domain"
	"github.com/alejandroruanova/review-refinery/internal/core/services/deduplication"
	"github.com/alejandroruanova/review-refinery/internal/core/services/refinery"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/cache"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

const reviewsCSV = `id,content,rating
1,"Ưng quá combo này, giao hàng trong 30p, giá 50k nha!!!",5
2,Giao hàng nhanh!!!,4
3,giao hàng nhanh.,4
4,"Hàng k đẹp, sp ko tốt 😡",1
`

type mockBatchRepository struct {
	mu       sync.Mutex
	created  []*domain.Batch
	statuses []string
	last     domain.BatchProgress
	createErr error
}

func (m *mockBatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, batch)
	return nil
}

func (m *mockBatchRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, progress.Status)
	m.last = progress
	return nil
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("cache down")
}

func (failingCache) Set(ctx context.Context, key, value string) error {
	return errors.New("cache down")
}

// memoryHashRepository keeps dedup hashes per batch
type memoryHashRepository struct {
	mu     sync.Mutex
	hashes map[uuid.UUID][]deduplication.HashEntry
}

func (m *memoryHashRepository) CheckHashExists(ctx context.Context, hash string, excludeBatchID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for batchID, entries := range m.hashes {
		if batchID == excludeBatchID {
			continue
		}
		for _, e := range entries {
			if e.Kept && e.Hash == hash {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memoryHashRepository) SaveHashes(ctx context.Context, batchID uuid.UUID, hashes []deduplication.HashEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes == nil {
		m.hashes = make(map[uuid.UUID][]deduplication.HashEntry)
	}
	m.hashes[batchID] = hashes
	return nil
}

func (m *memoryHashRepository) GetBatchHashes(ctx context.Context, batchID uuid.UUID) ([]deduplication.HashEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[batchID], nil
}

// flakyWriter fails its first write, then writes CSV
type flakyWriter struct {
	calls int
}

func (w *flakyWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	w.calls++
	if w.calls == 1 {
		return errors.New("disk full")
	}
	return (&parsers.CSVWriter{}).Write(ctx, filePath, columns, rows)
}

func (w *flakyWriter) SupportedFormats() []string {
	return []string{".csv"}
}

func newPipeline(t *testing.T) *refinery.Pipeline {
	t.Helper()
	pipeline, err := refinery.NewPipeline("v1", nil)
	require.NoError(t, err)
	return pipeline
}

func newService(t *testing.T, deps Dependencies) *Service {
	t.Helper()
	if deps.Pipeline == nil {
		deps.Pipeline = newPipeline(t)
	}
	service, err := NewService(deps)
	require.NoError(t, err)
	return service
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readOutput(t *testing.T, path string) *parsers.ParseResult {
	t.Helper()
	result, err := parsers.NewParserFactory(parsers.ReviewParserConfig()).ParseFile(context.Background(), path)
	require.NoError(t, err)
	return result
}

func TestService_Run(t *testing.T) {
	pipeline := newPipeline(t)
	service := newService(t, Dependencies{Pipeline: pipeline})

	input := writeInput(t, "reviews.csv", reviewsCSV)
	output := filepath.Join(t.TempDir(), "out", "reviews_clean.csv")

	report, err := service.Run(context.Background(), Job{InputPath: input, OutputPath: output})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.BatchID)
	assert.Equal(t, "v1", report.Refinery)
	assert.Equal(t, ".csv", report.Format)
	assert.Len(t, report.FileHash, 64)
	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 4, report.WrittenRecords)
	assert.Zero(t, report.DuplicateRecords)

	result := readOutput(t, output)
	assert.Equal(t, []string{DefaultOutputColumn, DefaultTextColumn}, result.Columns)
	require.Len(t, result.Records, 4)

	assert.Equal(t, "Ưng quá combo này, giao hàng trong 30p, giá 50k nha!!!", result.Records[0].Text("content"))
	assert.Equal(t, "ưng quá combo này giao_hàng trong timev giá pricev nha", result.Records[0].Text("pre_content"))
	for _, record := range result.Records {
		assert.Equal(t, pipeline.CleanText(record.Text("content")), record.Text("pre_content"))
	}
}

func TestService_RunDeduplicate(t *testing.T) {
	service := newService(t, Dependencies{})

	input := writeInput(t, "reviews.csv", reviewsCSV)
	output := filepath.Join(t.TempDir(), "reviews_clean.jsonl")

	report, err := service.Run(context.Background(), Job{
		InputPath:   input,
		OutputPath:  output,
		Deduplicate: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 3, report.WrittenRecords)
	assert.Equal(t, 1, report.DuplicateRecords)

	result := readOutput(t, output)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "Giao hàng nhanh!!!", result.Records[1].Text("content"), "first occurrence kept")
	assert.Equal(t, "Hàng k đẹp, sp ko tốt 😡", result.Records[2].Text("content"))
}

func TestService_RunCustomColumns(t *testing.T) {
	service := newService(t, Dependencies{})

	input := writeInput(t, "reviews.jsonl",
		`{"review":"Hàng đẹp!!!","stars":5}`+"\n"+`{"review":null,"stars":1}`+"\n")
	output := filepath.Join(t.TempDir(), "clean.txt")

	report, err := service.Run(context.Background(), Job{
		InputPath:    input,
		OutputPath:   output,
		Column:       "review",
		OutputColumn: "cleaned",
		Workers:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.WrittenRecords)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "hàng đẹp\nHàng đẹp!!!\n\n\n", string(data))
}

func TestService_RunUsesCache(t *testing.T) {
	memory, err := cache.NewMemoryCache(100, 0)
	require.NoError(t, err)

	service := newService(t, Dependencies{Cache: memory})
	input := writeInput(t, "reviews.csv", reviewsCSV)
	outDir := t.TempDir()

	first, err := service.Run(context.Background(), Job{InputPath: input, OutputPath: filepath.Join(outDir, "a.csv")})
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)
	assert.Equal(t, 4, memory.Len())

	second, err := service.Run(context.Background(), Job{InputPath: input, OutputPath: filepath.Join(outDir, "b.csv")})
	require.NoError(t, err)
	assert.Equal(t, 4, second.CacheHits)

	a, err := os.ReadFile(filepath.Join(outDir, "a.csv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(outDir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestService_RunCacheFailureIsIgnored(t *testing.T) {
	service := newService(t, Dependencies{Cache: failingCache{}})

	report, err := service.Run(context.Background(), Job{
		InputPath:  writeInput(t, "reviews.csv", reviewsCSV),
		OutputPath: filepath.Join(t.TempDir(), "out.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.WrittenRecords)
	assert.Zero(t, report.CacheHits)
}

func TestService_RunRecordsProgress(t *testing.T) {
	repo := &mockBatchRepository{}
	service := newService(t, Dependencies{Batches: repo})

	batchID := uuid.New()
	_, err := service.Run(context.Background(), Job{
		BatchID:     batchID,
		InputPath:   writeInput(t, "reviews.csv", reviewsCSV),
		OutputPath:  filepath.Join(t.TempDir(), "out.xlsx"),
		Deduplicate: true,
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, batchID, repo.created[0].ID)
	assert.Equal(t, "reviews.csv", repo.created[0].OriginalFilename)
	assert.Equal(t, []string{
		domain.BatchStatusCleaning,
		domain.BatchStatusDeduplicating,
		domain.BatchStatusCompleted,
	}, repo.statuses)
	assert.Equal(t, 3, repo.last.ProcessedRecords)
	assert.Equal(t, 1, repo.last.DuplicateRecords)
	assert.NotEmpty(t, repo.last.OutputPath)
}

func TestService_RunMissingColumn(t *testing.T) {
	repo := &mockBatchRepository{}
	service := newService(t, Dependencies{Batches: repo})

	_, err := service.Run(context.Background(), Job{
		InputPath:  writeInput(t, "reviews.csv", reviewsCSV),
		OutputPath: filepath.Join(t.TempDir(), "out.csv"),
		Column:     "comment",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeColumnNotFound))
	assert.Equal(t, []string{domain.BatchStatusFailed}, repo.statuses)
	assert.NotEmpty(t, repo.last.ErrorMessage)
}

func TestService_RunEmptyInput(t *testing.T) {
	service := newService(t, Dependencies{})
	output := filepath.Join(t.TempDir(), "out.csv")

	report, err := service.Run(context.Background(), Job{
		InputPath:  writeInput(t, "empty.json", "[]"),
		OutputPath: output,
	})
	require.NoError(t, err)
	assert.Zero(t, report.WrittenRecords)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "pre_content,content\n", string(data))
}

func TestService_RunErrors(t *testing.T) {
	service := newService(t, Dependencies{})
	input := writeInput(t, "reviews.csv", reviewsCSV)
	output := filepath.Join(t.TempDir(), "out.csv")

	_, err := service.Run(context.Background(), Job{InputPath: input, OutputPath: output, RefineryVersion: "v9"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRefineryNotFound))

	_, err = service.Run(context.Background(), Job{InputPath: input, OutputPath: filepath.Join(t.TempDir(), "out.parquet")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnsupportedFormat))

	_, err = service.Run(context.Background(), Job{InputPath: filepath.Join(t.TempDir(), "missing.csv"), OutputPath: output})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidFile))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = service.Run(ctx, Job{InputPath: input, OutputPath: output})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_RunRefineryAlias(t *testing.T) {
	service := newService(t, Dependencies{})

	report, err := service.Run(context.Background(), Job{
		InputPath:       writeInput(t, "reviews.csv", reviewsCSV),
		OutputPath:      filepath.Join(t.TempDir(), "out.csv"),
		RefineryVersion: "vietnamese",
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", report.Refinery)
}

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		ok   bool
	}{
		{"valid", Job{InputPath: "in.csv", OutputPath: "out.csv"}, true},
		{"missing input", Job{OutputPath: "out.csv"}, false},
		{"missing output", Job{InputPath: "in.csv"}, false},
		{"same path", Job{InputPath: "data/in.csv", OutputPath: "data/./in.csv"}, false},
		{"same columns", Job{InputPath: "in.csv", OutputPath: "out.csv", Column: "x", OutputColumn: "x"}, false},
		{"output column defaults to the text column", Job{InputPath: "in.csv", OutputPath: "out.csv", Column: "pre_content"}, false},
		{"negative workers", Job{InputPath: "in.csv", OutputPath: "out.csv", Workers: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
			}
		})
	}
}

func TestNewService_RequiresPipeline(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestService_RunRetryAfterFailure(t *testing.T) {
	hashes := &memoryHashRepository{}
	config := deduplication.DefaultConfig()
	config.Strategy = deduplication.StrategyUniversal
	config.EnableLevel2 = true

	writers := parsers.NewWriterFactory()
	writers.RegisterWriter(&flakyWriter{})
	repo := &mockBatchRepository{}

	service := newService(t, Dependencies{
		Writers:      writers,
		Batches:      repo,
		Deduplicator: deduplication.NewService(config, hashes, nil),
	})

	job := Job{
		BatchID:     uuid.New(),
		InputPath:   writeInput(t, "reviews.csv", reviewsCSV),
		OutputPath:  filepath.Join(t.TempDir(), "out.csv"),
		Deduplicate: true,
	}

	_, err := service.Run(context.Background(), job)
	require.EqualError(t, err, "disk full")
	assert.Equal(t, domain.BatchStatusFailed, repo.last.Status)

	report, err := service.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 3, report.WrittenRecords)
	assert.Equal(t, 1, report.DuplicateRecords)
	assert.Equal(t, domain.BatchStatusCompleted, repo.last.Status)
	assert.Len(t, readOutput(t, job.OutputPath).Records, 3)

	stored, err := hashes.GetBatchHashes(context.Background(), job.BatchID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// a different batch with the same reviews drops them all
	job.BatchID = uuid.New()
	report, err = service.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 0, report.WrittenRecords)
	assert.Equal(t, 4, report.DuplicateRecords)
}

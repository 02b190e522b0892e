package deduplication

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHashRepository implements HashRepository for testing.
// seededHashes count as kept by some unrelated batch.
type mockHashRepository struct {
	seededHashes map[string]bool
	savedHashes  map[uuid.UUID][]HashEntry
	checkErr     error
	saveErr      error
}

func newMockHashRepository() *mockHashRepository {
	return &mockHashRepository{
		seededHashes: make(map[string]bool),
		savedHashes:  make(map[uuid.UUID][]HashEntry),
	}
}

func (m *mockHashRepository) CheckHashExists(ctx context.Context, hash string, excludeBatchID uuid.UUID) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	if m.seededHashes[hash] {
		return true, nil
	}
	for batchID, entries := range m.savedHashes {
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

func (m *mockHashRepository) SaveHashes(ctx context.Context, batchID uuid.UUID, hashes []HashEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedHashes[batchID] = hashes
	return nil
}

func (m *mockHashRepository) GetBatchHashes(ctx context.Context, batchID uuid.UUID) ([]HashEntry, error) {
	return m.savedHashes[batchID], nil
}

func records(texts ...string) []Record {
	out := make([]Record, len(texts))
	for i, text := range texts {
		out[i] = Record{RowIndex: i, Text: text}
	}
	return out
}

func level1Config() Config {
	return Config{
		Strategy:       StrategyExact,
		CaseSensitive:  false,
		TrimWhitespace: true,
	}
}

func TestService_DeduplicateLevel1_ExactMatch(t *testing.T) {
	service := NewService(level1Config(), nil, nil)

	input := records(
		"giao_hàng nhanh",
		"giao_hàng nhanh",
		"sản_phẩm tốt",
		"giao_hàng nhanh",
		"đóng_gói cẩn_thận",
	)

	result, err := service.Deduplicate(context.Background(), uuid.New(), input)

	require.NoError(t, err)
	assert.Equal(t, 5, result.OriginalCount)
	assert.Equal(t, 3, result.DeduplicatedCount)
	assert.Equal(t, 2, result.RemovedCount)
	assert.Equal(t, 2, result.Stats.Level1Duplicates)
	assert.Equal(t, 0, result.Stats.Level2Duplicates)
	assert.Equal(t, []int{0, 2, 4}, result.Kept(), "first occurrence kept, order preserved")
}

func TestService_DeduplicateLevel1_Case(t *testing.T) {
	input := []string{"SHOP UY TÍN", "shop uy tín", "Shop Uy Tín"}

	config := level1Config()
	config.CaseSensitive = true
	result, err := NewService(config, nil, nil).Deduplicate(context.Background(), uuid.New(), records(input...))
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeduplicatedCount)

	config.CaseSensitive = false
	result, err = NewService(config, nil, nil).Deduplicate(context.Background(), uuid.New(), records(input...))
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeduplicatedCount)
	assert.Equal(t, 2, result.RemovedCount)
}

func TestService_DeduplicateWhitespaceHandling(t *testing.T) {
	input := []string{"  hàng đẹp  ", "hàng đẹp", "  hàng đẹp"}

	result, err := NewService(level1Config(), nil, nil).Deduplicate(context.Background(), uuid.New(), records(input...))
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeduplicatedCount)

	config := level1Config()
	config.TrimWhitespace = false
	result, err = NewService(config, nil, nil).Deduplicate(context.Background(), uuid.New(), records(input...))
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeduplicatedCount)
}

func TestService_DeduplicateFuzzy(t *testing.T) {
	config := level1Config()
	config.Strategy = StrategyFuzzy

	input := records("giao_hàng  nhanh", "giao hàng nhanh", "giao_hàng_nhanh", "giao hàng chậm")
	result, err := NewService(config, nil, nil).Deduplicate(context.Background(), uuid.New(), input)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, result.Kept())
}

func TestService_DeduplicateEmptyTexts(t *testing.T) {
	result, err := NewService(level1Config(), nil, nil).Deduplicate(context.Background(), uuid.New(), records("", "ok", ""))

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, result.Kept())
}

func TestService_DeduplicateEmptyRecords(t *testing.T) {
	service := NewService(DefaultConfig(), nil, nil)

	result, err := service.Deduplicate(context.Background(), uuid.New(), []Record{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.OriginalCount)
	assert.Equal(t, 0, result.DeduplicatedCount)
	assert.Equal(t, 0, result.RemovedCount)
	assert.Empty(t, result.Records)
}

func TestService_DeduplicateLevel2_CrossBatch(t *testing.T) {
	mockRepo := newMockHashRepository()

	config := Config{
		Strategy:       StrategyUniversal,
		EnableLevel2:   true,
		StoreHashes:    true,
		TrimWhitespace: true,
	}
	service := NewService(config, mockRepo, nil)

	result1, err := service.Deduplicate(context.Background(), uuid.New(), records("hàng đẹp", "giao_hàng chậm"))
	require.NoError(t, err)
	assert.Equal(t, 2, result1.DeduplicatedCount)
	assert.Equal(t, 0, result1.RemovedCount)

	result2, err := service.Deduplicate(context.Background(), uuid.New(), records("hàng đẹp", "giao_hàng chậm", "ưng quá"))
	require.NoError(t, err)

	assert.Equal(t, 3, result2.OriginalCount)
	assert.Equal(t, 1, result2.DeduplicatedCount)
	assert.Equal(t, 0, result2.Stats.Level1Duplicates)
	assert.Equal(t, 2, result2.Stats.Level2Duplicates)
	assert.Equal(t, "ưng quá", result2.Records[0].Text)
}

func TestService_DeduplicateLevel2_SameBatchRerun(t *testing.T) {
	mockRepo := newMockHashRepository()

	config := DefaultConfig()
	config.Strategy = StrategyUniversal
	config.EnableLevel2 = true
	service := NewService(config, mockRepo, nil)

	batchID := uuid.New()
	first, err := service.Deduplicate(context.Background(), batchID, records("hàng đẹp", "ưng quá"))
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, first.Kept())

	// the same batch again sees none of its own stored hashes
	again, err := service.Deduplicate(context.Background(), batchID, records("hàng đẹp", "ưng quá"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, again.Kept())
	assert.Equal(t, 0, again.Stats.Level2Duplicates)
	assert.Len(t, mockRepo.savedHashes[batchID], 2)

	other, err := service.Deduplicate(context.Background(), uuid.New(), records("hàng đẹp"))
	require.NoError(t, err)
	assert.Empty(t, other.Kept())
}

func TestService_DeduplicateLevel2_FailOpen(t *testing.T) {
	mockRepo := newMockHashRepository()
	mockRepo.checkErr = errors.New("connection refused")
	mockRepo.seededHashes[HashText("hàng đẹp", DefaultConfig())] = true

	config := DefaultConfig()
	config.EnableLevel2 = true
	config.StoreHashes = false

	result, err := NewService(config, mockRepo, nil).Deduplicate(context.Background(), uuid.New(), records("hàng đẹp", "hàng đẹp"))

	require.NoError(t, err)
	assert.Equal(t, []int{0}, result.Kept())
	assert.Equal(t, 0, result.Stats.Level2Duplicates)
}

func TestService_DeduplicateLevel2_Cancelled(t *testing.T) {
	config := DefaultConfig()
	config.EnableLevel2 = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(config, newMockHashRepository(), nil).Deduplicate(ctx, uuid.New(), records("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_StoreHashes(t *testing.T) {
	mockRepo := newMockHashRepository()

	config := level1Config()
	config.StoreHashes = true
	service := NewService(config, mockRepo, nil)

	batchID := uuid.New()
	result, err := service.Deduplicate(context.Background(), batchID, records("hàng đẹp", "hàng đẹp", "hàng lỗi"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.DeduplicatedCount)

	savedHashes, err := mockRepo.GetBatchHashes(context.Background(), batchID)
	require.NoError(t, err)
	require.Len(t, savedHashes, 3)

	kept := []bool{savedHashes[0].Kept, savedHashes[1].Kept, savedHashes[2].Kept}
	assert.Equal(t, []bool{true, false, true}, kept)
}

func TestService_StoreHashesFailureIsLogged(t *testing.T) {
	mockRepo := newMockHashRepository()
	mockRepo.saveErr = errors.New("disk full")

	result, err := NewService(DefaultConfig(), mockRepo, nil).Deduplicate(context.Background(), uuid.New(), records("a", "a"))

	require.NoError(t, err)
	assert.Equal(t, 1, result.DeduplicatedCount)
}

func TestHashText(t *testing.T) {
	config := DefaultConfig()

	hash := HashText("giao_hàng nhanh", config)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashText("giao_hàng nhanh", config))
	assert.Equal(t, hash, HashText("  GIAO_HÀNG NHANH ", config))
	assert.NotEqual(t, hash, HashText("giao_hàng chậm", config))
	assert.NotEqual(t, hash, HashText("giao hàng nhanh", config))
}

func BenchmarkService_Deduplicate(b *testing.B) {
	service := NewService(DefaultConfig(), nil, nil)

	input := make([]Record, 1000)
	for i := range input {
		text := "giao_hàng nhanh"
		if i%2 == 0 {
			text = "sản_phẩm tốt"
		}
		input[i] = Record{RowIndex: i, Text: text}
	}

	batchID := uuid.New()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.Deduplicate(ctx, batchID, input)
	}
}

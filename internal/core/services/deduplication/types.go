package deduplication

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Strategy defines the deduplication strategy
type Strategy string

const (
	StrategyExact     Strategy = "exact"     // Exact match on the cleaned text
	StrategyFuzzy     Strategy = "fuzzy"     // Word markers and spacing ignored
	StrategyUniversal Strategy = "universal" // Cross-batch deduplication
)

// Record is one cleaned review taking part in deduplication
type Record struct {
	RowIndex int    `json:"row_index"`
	Text     string `json:"text"`
	Hash     string `json:"hash,omitempty"`
}

// DeduplicationResult contains the result of deduplication
type DeduplicationResult struct {
	OriginalCount     int                `json:"original_count"`
	DeduplicatedCount int                `json:"deduplicated_count"`
	RemovedCount      int                `json:"removed_count"`
	Strategy          Strategy           `json:"strategy"`
	Records           []Record           `json:"records"`
	Stats             DeduplicationStats `json:"stats"`
}

// Kept returns the row indices that survived, in input order
func (r *DeduplicationResult) Kept() []int {
	rows := make([]int, len(r.Records))
	for i, record := range r.Records {
		rows[i] = record.RowIndex
	}
	return rows
}

// DeduplicationStats provides detailed statistics
type DeduplicationStats struct {
	Level1Duplicates int   `json:"level1_duplicates"` // Within batch
	Level2Duplicates int   `json:"level2_duplicates"` // Cross-batch
	UniqueRecords    int   `json:"unique_records"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Config for deduplication service
type Config struct {
	Strategy       Strategy `json:"strategy"`
	EnableLevel2   bool     `json:"enable_level2"`   // Enable cross-batch dedup
	StoreHashes    bool     `json:"store_hashes"`    // Store hashes in DB
	CaseSensitive  bool     `json:"case_sensitive"`  // Case-sensitive comparison
	TrimWhitespace bool     `json:"trim_whitespace"` // Trim whitespace before hashing
}

// DefaultConfig returns default deduplication configuration
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyExact,
		EnableLevel2:   false,
		StoreHashes:    true,
		CaseSensitive:  false,
		TrimWhitespace: true,
	}
}

// HashRepository defines the interface for hash storage
type HashRepository interface {
	// CheckHashExists reports whether a batch other than excludeBatchID
	// kept a review with this hash
	CheckHashExists(ctx context.Context, hash string, excludeBatchID uuid.UUID) (bool, error)

	// SaveHashes replaces the hashes stored for a batch, so a retried
	// batch never accumulates rows from an earlier attempt
	SaveHashes(ctx context.Context, batchID uuid.UUID, hashes []HashEntry) error

	// GetBatchHashes retrieves all hashes for a specific batch
	GetBatchHashes(ctx context.Context, batchID uuid.UUID) ([]HashEntry, error)
}

// HashEntry represents a hash entry to be stored
type HashEntry struct {
	Hash             string
	OriginalRowIndex int
	Kept             bool
}

// Deduplicator defines the interface for deduplication operations
type Deduplicator interface {
	Deduplicate(ctx context.Context, batchID uuid.UUID, records []Record) (*DeduplicationResult, error)
	GetConfig() Config
}

// HashText returns the hex BLAKE3 digest of text after normalization
func HashText(text string, config Config) string {
	sum := blake3.Sum256([]byte(normalizeText(text, config)))
	return hex.EncodeToString(sum[:])
}

func normalizeText(text string, config Config) string {
	if config.Strategy == StrategyFuzzy {
		text = strings.Join(strings.Fields(strings.ReplaceAll(text, "_", " ")), " ")
	}

	if config.TrimWhitespace {
		text = strings.TrimSpace(text)
	}

	if !config.CaseSensitive {
		text = strings.ToLower(text)
	}

	return text
}

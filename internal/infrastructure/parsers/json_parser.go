package parsers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// JSONParser parses JSON files holding an array of objects or a single object
type JSONParser struct {
	config *ParserConfig
}

// NewJSONParser creates a new JSON parser
func NewJSONParser(config *ParserConfig) *JSONParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONParser{
		config: config,
	}
}

// Parse reads and parses a JSON file from disk
func (p *JSONParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openLimited(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses JSON data from an io.Reader
func (p *JSONParser) ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	br := bufio.NewReader(reader)

	// Peek at the first significant byte to determine structure
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	decoder := json.NewDecoder(br)
	decoder.UseNumber()

	var records []Record

	switch first {
	case '[':
		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("failed to read JSON: %w", err)
		}

		for decoder.More() {
			// Check context cancellation
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			var record Record
			if err := decoder.Decode(&record); err != nil {
				return nil, fmt.Errorf("failed to decode JSON record: %w", err)
			}
			records = append(records, record)
		}

		// Read the closing bracket
		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("failed to read closing bracket: %w", err)
		}
	case '{':
		// Single object - wrap in array
		var record Record
		if err := decoder.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode JSON object: %w", err)
		}
		records = []Record{record}
	default:
		return nil, fmt.Errorf("expected JSON array or object, found %q", first)
	}

	return &ParseResult{
		Records:     records,
		TotalRows:   len(records),
		SkippedRows: 0,
		Columns:     collectColumns(records),
		Format:      "JSON",
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONParser) SupportedFormats() []string {
	return []string{".json"}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// collectColumns returns the union of record keys; keys first seen in the
// same record are sorted so the order is stable
func collectColumns(records []Record) []string {
	var columns []string
	seen := make(map[string]bool)

	for _, record := range records {
		var fresh []string
		for key := range record {
			if !seen[key] {
				seen[key] = true
				fresh = append(fresh, key)
			}
		}
		sort.Strings(fresh)
		columns = append(columns, fresh...)
	}

	return columns
}

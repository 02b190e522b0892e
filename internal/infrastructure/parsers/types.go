package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Record represents a single data record as a map
type Record map[string]interface{}

// ParseResult contains parsing statistics
type ParseResult struct {
	Records      []Record
	TotalRows    int
	SkippedRows  int
	Columns      []string
	Format       string
	ParsingError error
}

// FileParser is the interface all parsers must implement
type FileParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// ParseStream reads and parses from an io.Reader
	ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// MaxRowsInMemory is the initial capacity reserved for records
	MaxRowsInMemory int

	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed.
	// Column names are always trimmed.
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		MaxRowsInMemory: 10000,
		SkipEmptyRows:   true,
		TrimWhitespace:  true,
		MaxFileSize:     500 * 1024 * 1024, // 500 MB
	}
}

// ReviewParserConfig keeps cell values untouched so the original text
// column is written back exactly as read
func ReviewParserConfig() *ParserConfig {
	config := DefaultParserConfig()
	config.TrimWhitespace = false
	return config
}

// Text returns the value of column as a string. Missing and null values
// become "", other scalars are formatted with fmt.Sprint.
func (r Record) Text(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// HasColumn reports whether column is one of the parsed columns
func (p *ParseResult) HasColumn(column string) bool {
	for _, c := range p.Columns {
		if c == column {
			return true
		}
	}
	return false
}

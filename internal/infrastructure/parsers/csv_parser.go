package parsers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// CSVParser parses delimiter-separated files (.csv, .tsv, .txt)
type CSVParser struct {
	config  *ParserConfig
	comma   rune
	formats []string
	format  string
}

// NewCSVParser creates a new CSV parser. Plain .txt exports are read as CSV.
func NewCSVParser(config *ParserConfig) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{
		config:  config,
		comma:   ',',
		formats: []string{".csv", ".txt"},
		format:  "CSV",
	}
}

// NewTSVParser creates a parser for tab-separated files
func NewTSVParser(config *ParserConfig) *CSVParser {
	p := NewCSVParser(config)
	p.comma = '\t'
	p.formats = []string{".tsv"}
	p.format = "TSV"
	return p
}

// Parse reads and parses a CSV file from disk
func (p *CSVParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openLimited(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads and parses CSV data from an io.Reader
func (p *CSVParser) ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = p.comma
	csvReader.TrimLeadingSpace = p.config.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields per record

	// Read header row
	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", p.format, err)
	}
	header = normalizeHeader(header)

	records := make([]Record, 0, p.config.MaxRowsInMemory)
	totalRows := 0
	skippedRows := 0

	// Read data rows
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read %s: %w", p.format, err)
			}
			// Skip malformed rows but continue parsing
			totalRows++
			skippedRows++
			continue
		}

		totalRows++

		if p.config.SkipEmptyRows && isEmptyRow(row) {
			skippedRows++
			continue
		}

		records = append(records, rowRecord(header, row, p.config.TrimWhitespace))
	}

	return &ParseResult{
		Records:     records,
		TotalRows:   totalRows,
		SkippedRows: skippedRows,
		Columns:     header,
		Format:      p.format,
	}, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return p.formats
}

// rowRecord maps cells onto header names; short rows get "" for the
// missing columns and cells past the header are dropped
func rowRecord(header, row []string, trim bool) Record {
	record := make(Record, len(header))
	for i, col := range header {
		var value string
		if i < len(row) {
			value = row[i]
		}
		if trim {
			value = strings.TrimSpace(value)
		}
		record[col] = value
	}
	return record
}

// normalizeHeader trims column names and drops a leading UTF-8 BOM
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

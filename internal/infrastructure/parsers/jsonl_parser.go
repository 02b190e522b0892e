package parsers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// JSONLParser reads newline-delimited JSON objects, one review per line.
// Blank and malformed lines are counted as skipped; the first malformed
// line is reported in ParseResult.ParsingError.
type JSONLParser struct {
	config *ParserConfig
}

// NewJSONLParser creates a new JSONL parser
func NewJSONLParser(config *ParserConfig) *JSONLParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONLParser{config: config}
}

// Parse reads a JSONL file from disk
func (p *JSONLParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openLimited(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads JSONL from reader. Lines have no length limit.
func (p *JSONLParser) ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	br := bufio.NewReaderSize(reader, 64*1024)

	result := &ParseResult{
		Records: make([]Record, 0, p.config.MaxRowsInMemory),
		Format:  "JSONL",
	}

	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("error reading JSONL stream: %w", readErr)
		}

		line = bytes.TrimSpace(line)
		if len(line) > 0 || readErr == nil {
			result.TotalRows++
			if record, ok := p.decodeLine(line, lineNo, result); ok {
				result.Records = append(result.Records, record)
			} else {
				result.SkippedRows++
			}
		}

		if readErr != nil {
			break
		}
	}

	result.Columns = collectColumns(result.Records)
	return result, nil
}

func (p *JSONLParser) decodeLine(line []byte, lineNo int, result *ParseResult) (Record, bool) {
	if len(line) == 0 {
		return nil, false
	}

	var record Record
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		if result.ParsingError == nil {
			result.ParsingError = fmt.Errorf("line %d: %w", lineNo, err)
		}
		return nil, false
	}

	if p.config.SkipEmptyRows && len(record) == 0 {
		return nil, false
	}
	return record, true
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONLParser) SupportedFormats() []string {
	return []string{".jsonl", ".ndjson", ".jsonnl"}
}

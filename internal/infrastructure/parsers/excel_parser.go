package parsers

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelParser reads the active sheet of a workbook (.xlsx, .xlsm). The
// first row is the header. Rows are streamed so large review exports
// are not materialized twice.
type ExcelParser struct {
	config *ParserConfig
}

// NewExcelParser creates a new Excel parser
func NewExcelParser(config *ParserConfig) *ExcelParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &ExcelParser{config: config}
}

// Parse reads a workbook from disk
func (p *ExcelParser) Parse(ctx context.Context, filePath string) (*ParseResult, error) {
	file, err := openLimited(filePath, p.config.MaxFileSize)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.ParseStream(ctx, file)
}

// ParseStream reads a workbook from reader
func (p *ExcelParser) ParseStream(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	wb, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheet := activeSheet(wb)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	result := &ParseResult{
		Records: []Record{},
		Columns: []string{},
		Format:  "XLSX",
	}

	var header []string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		if header == nil {
			header = normalizeHeader(cells)
			result.Columns = header
			continue
		}

		result.TotalRows++
		if p.config.SkipEmptyRows && isEmptyRow(cells) {
			result.SkippedRows++
			continue
		}
		result.Records = append(result.Records, rowRecord(header, cells, p.config.TrimWhitespace))
	}

	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return result, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *ExcelParser) SupportedFormats() []string {
	return []string{".xlsx", ".xlsm"}
}

// activeSheet prefers the sheet the workbook was saved on
func activeSheet(wb *excelize.File) string {
	if name := wb.GetSheetName(wb.GetActiveSheetIndex()); name != "" {
		return name
	}
	return wb.GetSheetName(0)
}

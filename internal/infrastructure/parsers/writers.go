package parsers

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// RecordWriter writes a header and rows of strings to a file
type RecordWriter interface {
	// Write creates or truncates filePath
	Write(ctx context.Context, filePath string, columns []string, rows [][]string) error

	// SupportedFormats returns the file extensions this writer produces
	SupportedFormats() []string
}

// CSVWriter writes comma-separated files with a header row
type CSVWriter struct{}

// Write implements RecordWriter
func (w *CSVWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	return writeFile(filePath, func(out *bufio.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(columns); err != nil {
			return err
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// SupportedFormats returns the file extensions this writer produces
func (w *CSVWriter) SupportedFormats() []string {
	return []string{".csv"}
}

// JSONLWriter writes one JSON object per row
type JSONLWriter struct{}

// Write implements RecordWriter
func (w *JSONLWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	return writeFile(filePath, func(out *bufio.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			obj := make(map[string]string, len(columns))
			for i, col := range columns {
				if i < len(row) {
					obj[col] = row[i]
				}
			}
			if err := enc.Encode(obj); err != nil {
				return err
			}
		}
		return nil
	})
}

// SupportedFormats returns the file extensions this writer produces
func (w *JSONLWriter) SupportedFormats() []string {
	return []string{".jsonl", ".ndjson"}
}

// LinesWriter writes every cell on its own line with no header, row after row.
// Cells containing a newline, carriage return or quote are quoted CSV-style.
type LinesWriter struct{}

// Write implements RecordWriter
func (w *LinesWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	return writeFile(filePath, func(out *bufio.Writer) error {
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, cell := range row {
				if strings.ContainsAny(cell, "\"\r\n") {
					cell = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
				}
				if _, err := out.WriteString(cell + "\n"); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SupportedFormats returns the file extensions this writer produces
func (w *LinesWriter) SupportedFormats() []string {
	return []string{".txt"}
}

// ExcelWriter writes a single-sheet workbook
type ExcelWriter struct {
	SheetName string
}

// Write implements RecordWriter
func (w *ExcelWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(columns)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := ensureDir(filePath); err != nil {
		return err
	}
	return f.SaveAs(filePath)
}

// SupportedFormats returns the file extensions this writer produces
func (w *ExcelWriter) SupportedFormats() []string {
	return []string{".xlsx"}
}

// SQLiteWriter writes rows into a table of a SQLite database, replacing it
type SQLiteWriter struct {
	Table string
}

// Write implements RecordWriter
func (w *SQLiteWriter) Write(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	if err := ensureDir(filePath); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	table := w.Table
	if table == "" {
		table = "reviews"
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col) + " TEXT"
		placeholders[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		quoteIdent(table), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for _, row := range rows {
		for i := range args {
			args[i] = ""
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

// SupportedFormats returns the file extensions this writer produces
func (w *SQLiteWriter) SupportedFormats() []string {
	return []string{".db", ".sqlite", ".sqlite3"}
}

// WriterFactory selects a RecordWriter by output extension
type WriterFactory struct {
	writers map[string]RecordWriter
}

// NewWriterFactory creates a factory with all built-in writers
func NewWriterFactory() *WriterFactory {
	factory := &WriterFactory{writers: make(map[string]RecordWriter)}

	factory.RegisterWriter(&CSVWriter{})
	factory.RegisterWriter(&JSONLWriter{})
	factory.RegisterWriter(&LinesWriter{})
	factory.RegisterWriter(&ExcelWriter{})
	factory.RegisterWriter(&SQLiteWriter{})

	return factory
}

// RegisterWriter registers a writer for its extensions
func (f *WriterFactory) RegisterWriter(writer RecordWriter) {
	for _, ext := range writer.SupportedFormats() {
		f.writers[normalizeExt(ext)] = writer
	}
}

// GetWriterForFile returns the writer for filePath's extension
func (f *WriterFactory) GetWriterForFile(filePath string) (RecordWriter, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	writer, exists := f.writers[ext]
	if !exists {
		return nil, apperrors.UnsupportedFormat(ext)
	}
	return writer, nil
}

// WriteFile selects the writer by extension and writes the rows
func (f *WriterFactory) WriteFile(ctx context.Context, filePath string, columns []string, rows [][]string) error {
	writer, err := f.GetWriterForFile(filePath)
	if err != nil {
		return err
	}
	return writer.Write(ctx, filePath, columns, rows)
}

// SupportedFormats returns all output extensions, sorted
func (f *WriterFactory) SupportedFormats() []string {
	formats := make([]string, 0, len(f.writers))
	for ext := range f.writers {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// Helper functions

func writeFile(filePath string, fn func(*bufio.Writer) error) error {
	if err := ensureDir(filePath); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(filePath), err)
	}

	out := bufio.NewWriter(file)
	if err := fn(out); err != nil {
		file.Close()
		return err
	}
	if err := out.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ensureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

const (
	uploadsDir   = "uploads"
	processedDir = "processed"
)

// LocalStorage stages review files and their refined outputs on disk:
//
//	<base>/uploads/<id>/<name>
//	<base>/processed/<id>/<name>
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// LocalStorageConfig configures local storage
type LocalStorageConfig struct {
	BasePath string
}

// FileMetadata contains information about stored files
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string // BLAKE3, hex
	ContentType  string
	CreatedAt    time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// SaveUpload copies reader into the upload area and fingerprints it
func (s *LocalStorage) SaveUpload(ctx context.Context, uploadID string, filename string, reader io.Reader) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeID, safeName, err := sanitize(uploadID, filename)
	if err != nil {
		return nil, err
	}

	uploadDir := filepath.Join(s.basePath, uploadsDir, safeID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	destPath := filepath.Join(uploadDir, safeName)
	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(destFile, hasher), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	fileHash := hex.EncodeToString(hasher.Sum(nil))

	s.logger.Info("file staged",
		slog.String("upload_id", safeID),
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", fileHash))

	return &FileMetadata{
		ID:           safeID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         fileHash,
		ContentType:  getContentType(safeName),
		CreatedAt:    time.Now(),
	}, nil
}

// GetUpload opens a staged file
func (s *LocalStorage) GetUpload(ctx context.Context, uploadID string, filename string) (io.ReadCloser, error) {
	safeID, safeName, err := sanitize(uploadID, filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.basePath, uploadsDir, safeID, safeName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound(fmt.Sprintf("upload %s/%s", safeID, safeName))
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// ProcessedPath returns where the refined output of an upload is written,
// creating its directory.
func (s *LocalStorage) ProcessedPath(uploadID string, filename string) (string, error) {
	safeID, safeName, err := sanitize(uploadID, filename)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.basePath, processedDir, safeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}

	return filepath.Join(dir, safeName), nil
}

// ListProcessedFiles lists the outputs of an upload, sorted by name
func (s *LocalStorage) ListProcessedFiles(ctx context.Context, uploadID string) ([]string, error) {
	safeID, _, err := sanitize(uploadID, "x")
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.basePath, processedDir, safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read processed directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// DeleteUpload removes all files associated with an upload
func (s *LocalStorage) DeleteUpload(ctx context.Context, uploadID string) error {
	safeID, _, err := sanitize(uploadID, "x")
	if err != nil {
		return err
	}

	for _, area := range []string{uploadsDir, processedDir} {
		dir := filepath.Join(s.basePath, area, safeID)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete %s directory: %w", area, err)
		}
	}

	s.logger.Info("upload deleted", slog.String("upload_id", safeID))

	return nil
}

// CleanupOldFiles removes upload and output directories older than the
// given age and returns how many were removed
func (s *LocalStorage) CleanupOldFiles(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, area := range []string{uploadsDir, processedDir} {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		n, err := s.cleanupDirectory(filepath.Join(s.basePath, area), cutoff)
		removed += n
		if err != nil {
			return removed, fmt.Errorf("failed to cleanup %s: %w", area, err)
		}
	}

	s.logger.Info("cleanup completed",
		slog.Duration("older_than", olderThan),
		slog.Int("removed", removed))

	return removed, nil
}

func (s *LocalStorage) cleanupDirectory(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to get file info",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			s.logger.Warn("failed to remove directory",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}
		removed++
	}

	return removed, nil
}

// sanitize keeps IDs and names inside the storage root
func sanitize(uploadID, filename string) (string, string, error) {
	id := filepath.Base(uploadID)
	name := filepath.Base(filename)

	if uploadID == "" || id != uploadID || id == "." || id == ".." {
		return "", "", apperrors.BadRequest(fmt.Sprintf("invalid upload id %q", uploadID))
	}
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", "", apperrors.BadRequest(fmt.Sprintf("invalid file name %q", filename))
	}

	return id, name, nil
}

// getContentType returns the content type based on file extension
func getContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".jsonl", ".ndjson":
		return "application/x-ndjson"
	case ".db", ".sqlite", ".sqlite3":
		return "application/vnd.sqlite3"
	case ".xz":
		return "application/x-xz"
	default:
		return "application/octet-stream"
	}
}

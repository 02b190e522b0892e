package parsers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// CompressedExt marks inputs that are decompressed before parsing
const CompressedExt = ".xz"

// openLimited opens filePath and enforces the size limit
func openLimited(filePath string, maxSize int64) (*os.File, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(filePath), err)
	}

	// Check file size if limit is set
	if maxSize > 0 {
		stat, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > maxSize {
			file.Close()
			return nil, fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), maxSize)
		}
	}

	return file, nil
}

// FormatExt returns the extension that selects a parser or writer,
// looking through a trailing .xz: "reviews.csv.xz" -> ".csv"
func FormatExt(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == CompressedExt {
		return strings.ToLower(filepath.Ext(strings.TrimSuffix(filePath, filepath.Ext(filePath))))
	}
	return ext
}

// IsCompressed reports whether filePath ends in .xz
func IsCompressed(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), CompressedExt)
}

type xzFile struct {
	io.Reader
	file *os.File
}

func (x *xzFile) Close() error {
	return x.file.Close()
}

// ErrTooLarge reports input beyond ParserConfig.MaxFileSize
var ErrTooLarge = errors.New("input exceeds maximum size")

// capReader fails once more than n bytes have been read
type capReader struct {
	r io.Reader
	n int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.n < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.n+1 {
		p = p[:c.n+1]
	}
	n, err := c.r.Read(p)
	c.n -= int64(n)
	if c.n < 0 {
		return n + int(c.n), ErrTooLarge
	}
	return n, err
}

// openDecompressed opens an .xz file and returns a reader over its content.
// maxSize bounds both the compressed file and the decompressed stream.
func openDecompressed(filePath string, maxSize int64) (io.ReadCloser, error) {
	file, err := openLimited(filePath, maxSize)
	if err != nil {
		return nil, err
	}

	r, err := xz.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open xz stream: %w", err)
	}

	var content io.Reader = r
	if maxSize > 0 {
		content = &capReader{r: r, n: maxSize}
	}
	return &xzFile{Reader: content, file: file}, nil
}

package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file size exceeds limit")
)

type format int

const (
	formatText format = iota
	formatHTML
	formatDOCX
	formatPDF
	formatFeed
)

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var formatsByExt = map[string]format{
	".txt":  formatText,
	".md":   formatText,
	".html": formatHTML,
	".htm":  formatHTML,
	".docx": formatDOCX,
	".pdf":  formatPDF,
	".rss":  formatFeed,
	".atom": formatFeed,
	".xml":  formatFeed,
}

// Extractor turns documents into plain text for summarization.
type Extractor struct {
	maxFileSize int64
	log         *slog.Logger
}

func New(maxFileSize int64, log *slog.Logger) *Extractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	return &Extractor{
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func SupportedExtensions() []string {
	return []string{".txt", ".md", ".html", ".htm", ".docx", ".pdf", ".rss", ".atom", ".xml"}
}

func (e *Extractor) ExtractFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("stat file: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	if info.Size() > e.maxFileSize {
		return "", fmt.Errorf("%w: %s (%d > %d bytes)", ErrFileTooLarge, path, info.Size(), e.maxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(path))

	f, ok := formatsByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	text, err := e.extractFormat(path, f)
	if err != nil {
		e.log.Error("Failed to extract text",
			"error", err,
			"path", path,
			"ext", ext)

		return "", fmt.Errorf("extract %s: %w", ext, err)
	}

	return text, nil
}

func (e *Extractor) extractFormat(path string, f format) (string, error) {
	switch f {
	case formatDOCX:
		return extractDOCX(path)
	case formatPDF:
		return extractPDFFile(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			e.log.Warn("Failed to close file",
				"error", closeErr,
				"path", path)
		}
	}()

	switch f {
	case formatHTML:
		return extractHTML(file)
	case formatFeed:
		return extractFeed(file)
	default:
		return extractText(file)
	}
}

func extractText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}

	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), "�"))
	}

	return strings.TrimSpace(string(data)), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

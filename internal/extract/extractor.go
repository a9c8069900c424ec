// Package extract converts uploaded files into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

const (
	MIMEPlainText = "text/plain"
	MIMEPDF       = "application/pdf"

	mimeOctetStream = "application/octet-stream"
)

// Upload is a file handed to the extractor.
type Upload struct {
	Filename    string    // Original file name
	ContentType string    // Declared MIME type, may carry parameters
	Body        io.Reader // File content
}

// Extractor spools uploads to a temporary file and converts them to text.
// Only plain text and PDF are accepted.
type Extractor struct {
	fs       afero.Fs
	tempDir  string
	maxBytes int64
	logger   *slog.Logger
}

// NewExtractor creates an extractor on the given filesystem. maxBytes <= 0
// disables the size ceiling.
func NewExtractor(fs afero.Fs, tempDir string, maxBytes int64, logger *slog.Logger) *Extractor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		fs:       fs,
		tempDir:  tempDir,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Extract returns the text content of the upload. The temporary copy is
// removed on every return path.
func (e *Extractor) Extract(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil || upload.Body == nil {
		return "", fmt.Errorf("%w: no file content", ErrExtraction)
	}

	// Reject declared formats before touching the disk.
	declared := normalizeMIME(upload.ContentType)
	if declared != "" && declared != mimeOctetStream && !isSupported(declared) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, declared)
	}

	file, err := afero.TempFile(e.fs, e.tempDir, "docqa-upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", ErrExtraction, err)
	}
	defer func() {
		file.Close()
		if rmErr := e.fs.Remove(file.Name()); rmErr != nil {
			e.logger.Warn("Failed to remove temp upload", "file", file.Name(), "error", rmErr)
		}
	}()

	size, err := e.spool(file, upload.Body)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: rewind temp file: %w", ErrExtraction, err)
	}

	kind := declared
	if kind == "" || kind == mimeOctetStream {
		kind, err = sniff(file)
		if err != nil {
			return "", err
		}
		e.logger.Debug("Sniffed upload type", "filename", upload.Filename, "mime", kind)
	}

	switch kind {
	case MIMEPlainText:
		return readPlainText(file)
	case MIMEPDF:
		return readPDF(file, size)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
}

func (e *Extractor) spool(dst afero.File, src io.Reader) (int64, error) {
	reader := src
	if e.maxBytes > 0 {
		reader = io.LimitReader(src, e.maxBytes+1)
	}
	n, err := io.Copy(dst, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: write temp file: %w", ErrExtraction, err)
	}
	if e.maxBytes > 0 && n > e.maxBytes {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, e.maxBytes)
	}
	return n, nil
}

// sniff detects the content type of files uploaded without a useful declared type.
func sniff(file afero.File) (string, error) {
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("%w: detect content type: %w", ErrExtraction, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: rewind temp file: %w", ErrExtraction, err)
	}
	for _, supported := range []string{MIMEPlainText, MIMEPDF} {
		if mt.Is(supported) {
			return supported, nil
		}
	}
	return normalizeMIME(mt.String()), nil
}

func readPlainText(file afero.File) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("%w: read text: %w", ErrExtraction, err)
	}
	return string(data), nil
}

// readPDF extracts text from every page. The PDF parser panics on some
// malformed inputs, so panics are converted to extraction errors.
func readPDF(file afero.File, size int64) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", ErrExtraction, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %w", ErrExtraction, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %w", ErrExtraction, err)
	}
	return buf.String(), nil
}

func normalizeMIME(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return strings.ToLower(mediaType)
}

func isSupported(mediaType string) bool {
	return mediaType == MIMEPlainText || mediaType == MIMEPDF
}

// Package ingest moves uploaded audio blobs into durable storage and pulls
// technical metadata out of them. Metadata extraction is enrichment, not a
// precondition: a file whose format cannot be parsed is still stored and the
// song record is created with null duration/bitrate.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Service handles upload storage and metadata extraction.
type Service struct {
	logger *logrus.Logger
}

// NewService creates a new ingestion service.
func NewService(logger *logrus.Logger) *Service {
	return &Service{logger: logger}
}

// Store writes src into dir under originalName, resolving filename collisions
// by appending _1, _2, ... to the stem until an unused name is found. The
// first upload keeps the original name. The check-and-create step uses
// exclusive creation, so two near-simultaneous uploads can never resolve to
// the same path. Returns the final stored path.
func (s *Service) Store(src io.Reader, dir, originalName string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Sanitize filename to prevent path traversal
	safeName := filepath.Base(originalName)
	if safeName == "." || safeName == "/" || safeName == "" {
		safeName = "uploaded_file" + filepath.Ext(originalName)
	}

	ext := filepath.Ext(safeName)
	stem := strings.TrimSuffix(safeName, ext)

	var dest *os.File
	var destPath string
	for counter := 0; ; counter++ {
		name := safeName
		if counter > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, counter, ext)
		}
		destPath = filepath.Join(dir, name)

		f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			dest = f
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create destination file: %w", err)
		}
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path": destPath,
	}).Debug("Stored uploaded file")
	return destPath, nil
}

// Delete removes a stored file. Best-effort: a missing file is not an error
// and reports false.
func (s *Service) Delete(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}
	if err := os.Remove(path); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Failed to delete stored file")
		return false
	}
	return true
}

// ContentType returns the MIME type for a stored audio file type (extension
// without the dot).
func (s *Service) ContentType(fileType string) string {
	switch strings.ToLower(fileType) {
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

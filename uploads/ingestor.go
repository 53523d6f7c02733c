// Package uploads validates and persists client-submitted files into a
// session's uploads area. A batch either fully succeeds or leaves no trace:
// validation runs over the whole batch before any byte hits disk, and a
// late write failure rolls back everything written so far.
package uploads

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/models"
	"github.com/pixelforge/pixelforge/security"
	"github.com/pixelforge/pixelforge/session"
)

// IncomingFile is one client-submitted file before validation.
type IncomingFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Limits bounds a single batch.
type Limits struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
	MaxFiles      int
}

var allowedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/tiff": true,
	"image/bmp":  true,
}

var imageMagic = [][]byte{
	{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, // png
	{0xFF, 0xD8, 0xFF},                                // jpeg
	{0x47, 0x49, 0x46, 0x38},                          // gif
	{0x42, 0x4D},                                      // bmp
	{0x49, 0x49, 0x2A, 0x00},                          // tiff LE
	{0x4D, 0x4D, 0x00, 0x2A},                          // tiff BE
}

func looksLikeImage(data []byte) bool {
	for _, sig := range imageMagic {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// Ingestor saves validated batches into session upload areas.
type Ingestor struct {
	store  *session.Store
	logger *zap.Logger
}

func NewIngestor(store *session.Store, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, logger: logger}
}

// SaveUploads validates the whole batch, persists every file, and merges
// the saved list into session metadata. On validation failure it reports
// every problem found and writes nothing.
func (i *Ingestor) SaveUploads(sessionID string, files []IncomingFile, limits Limits) ([]models.UploadedFile, error) {
	if err := i.store.Open(sessionID); err != nil {
		return nil, err
	}
	if problems := validateBatch(files, limits); len(problems) > 0 {
		return nil, apperr.NewValidation(problems...)
	}

	// The index prefix continues from the session's existing upload count so
	// a later batch can never land on a path a previous batch already owns.
	doc, err := i.store.ReadMetadata(sessionID)
	if err != nil {
		return nil, err
	}
	offset := len(doc.UploadedFiles)

	uploadsDir := i.store.UploadsDir(sessionID)
	now := time.Now().UTC()

	saved := make([]models.UploadedFile, 0, len(files))
	var written []string
	rollback := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}

	for idx, f := range files {
		// The index prefix guarantees the client never fully controls the
		// final path, even after sanitization.
		name := fmt.Sprintf("%d_%s", offset+idx+1, security.SanitizeFilename(f.Name))
		dst := filepath.Join(uploadsDir, name)
		if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
			rollback()
			return nil, fmt.Errorf("persist upload %q: %w", f.Name, err)
		}
		written = append(written, dst)
		saved = append(saved, models.UploadedFile{
			OriginalName: f.Name,
			StoredPath:   dst,
			MimeType:     f.MimeType,
			Size:         int64(len(f.Data)),
			UploadedAt:   now,
		})
	}

	if _, err := i.store.PatchMetadata(sessionID, func(doc *models.Session) {
		doc.UploadedFiles = append(doc.UploadedFiles, saved...)
	}); err != nil {
		rollback()
		return nil, err
	}

	i.logger.Info("uploads saved",
		zap.String("session_id", sessionID),
		zap.Int("count", len(saved)))
	return saved, nil
}

// validateBatch is the pre-pass over every file; it returns the complete
// problem list rather than stopping at the first.
func validateBatch(files []IncomingFile, limits Limits) []string {
	var problems []string

	if len(files) == 0 {
		return []string{"no files provided"}
	}
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		problems = append(problems, fmt.Sprintf("batch has %d files, limit is %d", len(files), limits.MaxFiles))
	}

	var total int64
	for idx, f := range files {
		label := fmt.Sprintf("file %d (%s)", idx+1, f.Name)
		problems = append(problems, security.UploadNameProblems(f.Name)...)
		if !allowedMimeTypes[f.MimeType] {
			problems = append(problems, fmt.Sprintf("%s: unsupported type %q", label, f.MimeType))
		}
		if len(f.Data) == 0 {
			problems = append(problems, fmt.Sprintf("%s: payload is empty or truncated", label))
		} else if !looksLikeImage(f.Data) {
			problems = append(problems, fmt.Sprintf("%s: payload is not a recognized image", label))
		}
		size := int64(len(f.Data))
		if limits.MaxFileBytes > 0 && size > limits.MaxFileBytes {
			problems = append(problems, fmt.Sprintf("%s: %s exceeds the per-file limit of %s",
				label, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limits.MaxFileBytes))))
		}
		total += size
	}
	if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
		problems = append(problems, fmt.Sprintf("batch size %s exceeds the total limit of %s",
			humanize.IBytes(uint64(total)), humanize.IBytes(uint64(limits.MaxTotalBytes))))
	}
	return problems
}

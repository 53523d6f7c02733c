// Package session implements the filesystem-backed session store. Each
// session is a directory named by its UUID containing an uploads area, an
// output area, and two JSON documents: session.json (authoritative
// metadata) and progress.json (advisory, high-frequency). Both documents
// are written via temp-file-then-rename so readers never see a torn file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/models"
)

const (
	UploadsDirName = "uploads"
	OutputDirName  = "converted"
	MetadataFile   = "session.json"
	ProgressFile   = "progress.json"
	ArchiveFile    = "converted.zip"

	DefaultTTL = 24 * time.Hour
)

// Store manages session workspaces under a single base directory.
type Store struct {
	baseDir string
	logger  *zap.Logger

	sweepMu          sync.Mutex
	lastSweep        time.Time
	sweepMinInterval time.Duration
}

// NewStore creates the base directory if needed. sweepMinInterval throttles
// MaybeSweep; zero selects one hour.
func NewStore(baseDir string, sweepMinInterval time.Duration, logger *zap.Logger) (*Store, error) {
	if sweepMinInterval <= 0 {
		sweepMinInterval = time.Hour
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve session base dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create session base dir: %w", err)
	}
	return &Store{baseDir: abs, logger: logger, sweepMinInterval: sweepMinInterval}, nil
}

// ValidID reports whether id has the canonical UUID shape. It is the gate
// every operation applies before touching the filesystem; the session root
// name is always this id and never derived from user input.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Root returns the session root directory for id.
func (s *Store) Root(id string) string { return filepath.Join(s.baseDir, id) }

// UploadsDir returns the uploads area for id.
func (s *Store) UploadsDir(id string) string { return filepath.Join(s.baseDir, id, UploadsDirName) }

// OutputDir returns the job output area for id.
func (s *Store) OutputDir(id string) string { return filepath.Join(s.baseDir, id, OutputDirName) }

// ArchivePath returns the bundled archive location for id.
func (s *Store) ArchivePath(id string) string { return filepath.Join(s.baseDir, id, ArchiveFile) }

// Create provisions a fresh session: new UUID, both subdirectories, initial
// metadata and progress documents.
func (s *Store) Create(ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	for _, dir := range []string{s.UploadsDir(id), s.OutputDir(id)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session directories: %w", err)
		}
	}

	doc := &models.Session{
		ID:            id,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
		Status:        models.StatusIdle,
		UploadedFiles: []models.UploadedFile{},
	}
	if err := writeJSONAtomic(filepath.Join(s.Root(id), MetadataFile), doc); err != nil {
		_ = os.RemoveAll(s.Root(id))
		return nil, err
	}
	if err := writeJSONAtomic(filepath.Join(s.Root(id), ProgressFile), models.IdleProgress()); err != nil {
		_ = os.RemoveAll(s.Root(id))
		return nil, err
	}

	s.logger.Info("session created", zap.String("session_id", id), zap.Time("expires_at", doc.ExpiresAt))
	return doc, nil
}

// Open verifies the session exists and defensively re-ensures both
// subdirectories. It is idempotent.
func (s *Store) Open(id string) error {
	if !ValidID(id) {
		return apperr.NotFoundf("session %q", id)
	}
	info, err := os.Stat(s.Root(id))
	if err != nil || !info.IsDir() {
		return apperr.NotFoundf("session %s", id)
	}
	for _, dir := range []string{s.UploadsDir(id), s.OutputDir(id)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure session directories: %w", err)
		}
	}
	return nil
}

// ReadMetadata loads session.json.
func (s *Store) ReadMetadata(id string) (*models.Session, error) {
	if !ValidID(id) {
		return nil, apperr.NotFoundf("session %q", id)
	}
	raw, err := os.ReadFile(filepath.Join(s.Root(id), MetadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFoundf("session %s", id)
		}
		return nil, fmt.Errorf("read session metadata: %w", err)
	}
	var doc models.Session
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse session metadata: %w", err)
	}
	return &doc, nil
}

// PatchMetadata applies a merge-style mutation to session.json under the
// atomic-write guarantee. The identity field is always re-stamped so a
// patch can never rename a session.
func (s *Store) PatchMetadata(id string, patch func(*models.Session)) (*models.Session, error) {
	doc, err := s.ReadMetadata(id)
	if err != nil {
		return nil, err
	}
	patch(doc)
	doc.ID = id
	if err := writeJSONAtomic(filepath.Join(s.Root(id), MetadataFile), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadProgress returns the current progress snapshot. Progress is advisory:
// a malformed id and a missing or corrupt file all yield the zeroed default,
// never an error.
func (s *Store) ReadProgress(id string) models.Progress {
	if !ValidID(id) {
		return models.IdleProgress()
	}
	raw, err := os.ReadFile(filepath.Join(s.Root(id), ProgressFile))
	if err != nil {
		return models.IdleProgress()
	}
	var p models.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.IdleProgress()
	}
	return p
}

// WriteProgress persists a progress snapshot atomically.
func (s *Store) WriteProgress(id string, p models.Progress) error {
	return writeJSONAtomic(filepath.Join(s.Root(id), ProgressFile), p)
}

// Destroy removes the session root recursively. It is best-effort and
// idempotent: a failed or repeated cleanup never propagates an error.
func (s *Store) Destroy(id string) {
	if !ValidID(id) {
		return
	}
	if err := os.RemoveAll(s.Root(id)); err != nil {
		s.logger.Warn("session cleanup failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	s.logger.Info("session destroyed", zap.String("session_id", id))
}

// writeJSONAtomic marshals v and writes it via a temp file in the target
// directory followed by a rename, so concurrent readers observe either the
// old document or the new one.
func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

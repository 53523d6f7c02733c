package controllers

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/archive"
	"github.com/pixelforge/pixelforge/locks"
	"github.com/pixelforge/pixelforge/security"
	"github.com/pixelforge/pixelforge/session"
	"github.com/pixelforge/pixelforge/utils"
)

// FileController is the file gateway: it serves files confined to a
// session root and builds the downloadable archive.
type FileController struct {
	store  *session.Store
	locks  locks.Registry
	logger *zap.Logger
}

func NewFileController(store *session.Store, registry locks.Registry, logger *zap.Logger) *FileController {
	return &FileController{store: store, locks: registry, logger: logger}
}

// BuildArchive bundles the session's output directory into a zip. One
// build per session at a time, enforced by the lock registry.
func (f *FileController) BuildArchive(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := f.store.Open(id); err != nil {
		utils.Fail(ctx, err)
		return
	}

	outDir := f.store.OutputDir(id)
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) == 0 {
		utils.Fail(ctx, apperr.NewValidation("session has no converted files to archive"))
		return
	}

	lockKey := locks.ArchiveKey(id)
	if !f.locks.Acquire(lockKey) {
		utils.Fail(ctx, apperr.Conflictf("archive build for session %s", id))
		return
	}
	defer f.locks.Release(lockKey)

	if err := archive.Build(outDir, f.store.ArchivePath(id)); err != nil {
		utils.Fail(ctx, err)
		return
	}

	f.logger.Info("archive built", zap.String("session_id", id))
	utils.Success(ctx, gin.H{
		"session_id": id,
		"archive":    session.ArchiveFile,
		"path":       fmt.Sprintf("/api/v1/sessions/%s/files/%s", id, session.ArchiveFile),
	})
}

// Download serves one file from inside the session root. Every step is a
// hard gate: id shape, session existence, path confinement, regular-file
// stat, then conditional GET.
func (f *FileController) Download(ctx *gin.Context) {
	id := ctx.Param("id")
	if !session.ValidID(id) {
		utils.Fail(ctx, apperr.NotFoundf("session %q", id))
		return
	}
	if err := f.store.Open(id); err != nil {
		utils.Fail(ctx, err)
		return
	}

	segments := security.SplitRequestPath(ctx.Param("filepath"))
	target, err := security.ResolveWithin(f.store.Root(id), segments)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		utils.Fail(ctx, apperr.NotFoundf("file %s", strings.Join(segments, "/")))
		return
	}

	etag := fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().Unix())
	ctx.Header("ETag", etag)
	ctx.Header("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	ctx.Header("Cache-Control", "private")
	ctx.Header("X-Content-Type-Options", "nosniff")
	if filepath.Ext(target) == ".zip" {
		ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(target)))
	}

	if notModified(ctx.Request, etag, info.ModTime()) {
		ctx.Status(http.StatusNotModified)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(target))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Header("Content-Type", contentType)
	ctx.File(target)
}

// notModified evaluates conditional-GET validators: If-None-Match wins over
// If-Modified-Since when both are present.
func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if match := r.Header.Get("If-None-Match"); match != "" {
		for _, candidate := range strings.Split(match, ",") {
			candidate = strings.TrimSpace(candidate)
			// "*" matches any current representation (RFC 9110 §13.1.2).
			if candidate == "*" || candidate == etag {
				return true
			}
		}
		return false
	}
	if since := r.Header.Get("If-Modified-Since"); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			return !modTime.Truncate(time.Second).After(t)
		}
	}
	return false
}

package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/session"
	"github.com/pixelforge/pixelforge/uploads"
	"github.com/pixelforge/pixelforge/utils"
)

// SessionController covers session lifecycle: creation, uploads, info,
// cleanup, and the admin sweep.
type SessionController struct {
	store    *session.Store
	ingestor *uploads.Ingestor
	limits   uploads.Limits
	ttl      time.Duration
	logger   *zap.Logger
}

func NewSessionController(store *session.Store, ingestor *uploads.Ingestor, limits uploads.Limits, ttl time.Duration, logger *zap.Logger) *SessionController {
	return &SessionController{store: store, ingestor: ingestor, limits: limits, ttl: ttl, logger: logger}
}

type newSessionRequest struct {
	TTLHours int `json:"ttl_hours"`
}

// Create provisions a new session. The default TTL can be shortened or
// extended per request within sane bounds.
func (s *SessionController) Create(ctx *gin.Context) {
	// Expired sessions are reaped opportunistically on the cheapest
	// mutating route, throttled inside the store.
	go s.store.MaybeSweep()

	ttl := s.ttl
	var req newSessionRequest
	if err := ctx.ShouldBindJSON(&req); err == nil && req.TTLHours > 0 && req.TTLHours <= 7*24 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	doc, err := s.store.Create(ttl)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"session_id": doc.ID, "expires_at": doc.ExpiresAt})
}

// Info returns the session metadata document.
func (s *SessionController) Info(ctx *gin.Context) {
	doc, err := s.store.ReadMetadata(ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, doc)
}

// Upload saves a multipart batch into an existing session.
func (s *SessionController) Upload(ctx *gin.Context) {
	s.upload(ctx, ctx.Param("id"))
}

// UploadNew creates a session implicitly and saves the batch into it, the
// "first upload starts a session" flow.
func (s *SessionController) UploadNew(ctx *gin.Context) {
	doc, err := s.store.Create(s.ttl)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	s.upload(ctx, doc.ID)
}

func (s *SessionController) upload(ctx *gin.Context, sessionID string) {
	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Fail(ctx, apperr.NewValidation("request is not valid multipart form data"))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}

	incoming, err := readMultipart(headers)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	saved, err := s.ingestor.SaveUploads(sessionID, incoming, s.limits)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"session_id": sessionID, "files": saved})
}

func readMultipart(headers []*multipart.FileHeader) ([]uploads.IncomingFile, error) {
	incoming := make([]uploads.IncomingFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, apperr.NewValidation("upload " + h.Filename + " could not be read")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperr.NewValidation("upload " + h.Filename + " is truncated")
		}
		mimeType := h.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		incoming = append(incoming, uploads.IncomingFile{
			Name:     h.Filename,
			MimeType: mimeType,
			Data:     data,
		})
	}
	return incoming, nil
}

// Cleanup destroys the session workspace. Idempotent: cleaning an unknown
// or already-cleaned session still acknowledges.
func (s *SessionController) Cleanup(ctx *gin.Context) {
	s.store.Destroy(ctx.Param("id"))
	utils.Success(ctx, gin.H{"cleaned": true})
}

// Sweep removes every expired session immediately (admin operation).
func (s *SessionController) Sweep(ctx *gin.Context) {
	removed := s.store.SweepExpired()
	if removed == nil {
		removed = []string{}
	}
	utils.Success(ctx, gin.H{"removed": removed})
}

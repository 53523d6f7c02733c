package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/jobs"
	"github.com/pixelforge/pixelforge/locks"
	"github.com/pixelforge/pixelforge/models"
	"github.com/pixelforge/pixelforge/session"
	"github.com/pixelforge/pixelforge/utils"
)

// JobController starts conversion jobs and serves progress polls.
type JobController struct {
	store     *session.Store
	processor *jobs.Processor
	locks     locks.Registry
	logger    *zap.Logger
}

func NewJobController(store *session.Store, processor *jobs.Processor, registry locks.Registry, logger *zap.Logger) *JobController {
	return &JobController{store: store, processor: processor, locks: registry, logger: logger}
}

// Start validates the request, takes the per-session conversion lock, and
// runs the batch in the background. The client polls progress afterwards.
func (j *JobController) Start(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := j.store.Open(id); err != nil {
		utils.Fail(ctx, err)
		return
	}

	var opts models.ConversionOptions
	if err := ctx.ShouldBindJSON(&opts); err != nil {
		utils.Fail(ctx, apperr.NewValidation("request body is not valid job options"))
		return
	}
	if err := opts.Validate(); err != nil {
		utils.Fail(ctx, err)
		return
	}

	meta, err := j.store.ReadMetadata(id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if len(meta.UploadedFiles) == 0 {
		utils.Fail(ctx, apperr.NewValidation("session has no uploaded files"))
		return
	}

	lockKey := locks.ConvertKey(id)
	if !j.locks.Acquire(lockKey) {
		utils.Fail(ctx, apperr.Conflictf("conversion for session %s", id))
		return
	}

	inputs := make([]jobs.InputFile, 0, len(meta.UploadedFiles))
	for _, f := range meta.UploadedFiles {
		inputs = append(inputs, jobs.InputFile{OriginalName: f.OriginalName, Path: f.StoredPath})
	}
	total := len(inputs)

	if _, err := j.store.PatchMetadata(id, func(doc *models.Session) {
		doc.Status = models.StatusProcessing
		doc.LastJob = &opts
		doc.Succeeded = 0
		doc.Failed = 0
	}); err != nil {
		j.locks.Release(lockKey)
		utils.Fail(ctx, err)
		return
	}
	_ = j.store.WriteProgress(id, models.Progress{Total: total, CurrentOperation: "Queued"})

	go j.runJob(id, lockKey, inputs, opts)

	utils.Accepted(ctx, gin.H{"session_id": id, "total": total})
}

func (j *JobController) runJob(id, lockKey string, inputs []jobs.InputFile, opts models.ConversionOptions) {
	defer j.locks.Release(lockKey)

	// Progress persistence is fire-and-forget through a single writer
	// goroutine: snapshots are dropped when the writer is busy (latest
	// wins), they are never written out of order, and a failed write
	// never slows down or aborts the job itself.
	progCh := make(chan models.Progress, 1)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for p := range progCh {
			if err := j.store.WriteProgress(id, p); err != nil {
				j.logger.Debug("progress write failed", zap.String("session_id", id), zap.Error(err))
			}
		}
	}()
	onProgress := func(p models.Progress) {
		for {
			select {
			case progCh <- p:
				return
			default:
			}
			select {
			case <-progCh: // discard the stale snapshot
			default:
			}
		}
	}

	results, err := j.processor.Run(inputs, j.store.OutputDir(id), opts, onProgress)
	close(progCh)
	<-writerDone

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}

	status := models.StatusCompleted
	if err != nil {
		status = models.StatusError
		j.logger.Error("conversion job failed", zap.String("session_id", id), zap.Error(err))
	}

	// Recording the final status is best-effort; a metadata write failure
	// must not mask the job outcome already captured in the logs.
	if _, perr := j.store.PatchMetadata(id, func(doc *models.Session) {
		doc.Status = status
		doc.Succeeded = succeeded
		doc.Failed = failed
	}); perr != nil {
		j.logger.Warn("final status write failed", zap.String("session_id", id), zap.Error(perr))
	}

	j.logger.Info("conversion job finished",
		zap.String("session_id", id),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.String("status", string(status)))
}

// Progress returns the latest advisory snapshot. Unknown sessions yield the
// idle default rather than an error; progress is never authoritative.
func (j *JobController) Progress(ctx *gin.Context) {
	utils.Success(ctx, j.store.ReadProgress(ctx.Param("id")))
}

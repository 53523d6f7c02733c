// Package jobs drives the image engine over a batch of uploaded files.
// Files are processed sequentially: the engine is an opaque external call
// with nondeterministic resource use, so simplicity wins over throughput.
package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/engine"
	"github.com/pixelforge/pixelforge/models"
	"github.com/pixelforge/pixelforge/security"
)

const DefaultFileTimeout = 30 * time.Second

// InputFile pairs the client-facing original name with the stored path.
type InputFile struct {
	OriginalName string
	Path         string
}

// ProgressFunc receives a snapshot after every unit of work. It is
// best-effort: errors and panics inside the callback are swallowed and
// never abort the job.
type ProgressFunc func(models.Progress)

// Processor runs conversion batches.
type Processor struct {
	engine  engine.Engine
	timeout time.Duration
	logger  *zap.Logger
}

func NewProcessor(eng engine.Engine, timeout time.Duration, logger *zap.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultFileTimeout
	}
	return &Processor{engine: eng, timeout: timeout, logger: logger}
}

// Run converts every input into outputDir. A single file's failure is
// recorded and processing continues; only an all-failed batch returns an
// error, since that signals a systemic problem rather than bad inputs.
func (p *Processor) Run(inputs []InputFile, outputDir string, opts models.ConversionOptions, onProgress ProgressFunc) ([]models.ConversionResult, error) {
	total := len(inputs)
	if total == 0 {
		return nil, apperr.NewValidation("no files to process")
	}

	report := func(snapshot models.Progress) {
		if onProgress == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				p.logger.Warn("progress callback panicked", zap.Any("panic", r))
			}
		}()
		onProgress(snapshot)
	}

	report(models.Progress{Current: 0, Total: total, CurrentOperation: "Starting conversion"})

	results := make([]models.ConversionResult, 0, total)
	failed := 0
	for idx, in := range inputs {
		res := p.convertOne(in, outputDir, opts, idx)
		if !res.Success {
			failed++
		}
		results = append(results, res)

		report(models.Progress{
			Current:          idx + 1,
			Total:            total,
			CurrentOperation: "Converting",
			CurrentFile:      in.OriginalName,
		})
	}

	report(models.Progress{Current: total, Total: total, CurrentOperation: "Completed"})

	if failed == total {
		return results, &apperr.EngineError{
			File: inputs[0].OriginalName,
			Err:  fmt.Errorf("all %d files failed to convert", total),
		}
	}
	return results, nil
}

func (p *Processor) convertOne(in InputFile, outputDir string, opts models.ConversionOptions, index int) models.ConversionResult {
	res := models.ConversionResult{OriginalName: in.OriginalName}

	info, err := os.Stat(in.Path)
	if err != nil || info.Size() == 0 {
		res.Error = "input file is missing or empty"
		return res
	}
	res.OriginalSize = info.Size()

	// Dimension probing is informational; an undecodable file will fail at
	// the transform step with a better message.
	if dims, err := p.engine.Probe(in.Path); err == nil {
		res.Width = dims.Width
		res.Height = dims.Height
	}

	outName := resolveCollision(outputDir, outputName(in.OriginalName, opts, index))
	outPath := filepath.Join(outputDir, outName)

	// The engine writes to a per-call scratch name, published by rename only
	// on success. A goroutine stranded past its timeout can then at worst
	// recreate its own scratch file, never clobber a published output. The
	// scratch name keeps the target extension because the backend derives
	// the codec from it.
	workPath := filepath.Join(outputDir,
		fmt.Sprintf(".work-%d-%d%s", index, time.Now().UnixNano(), filepath.Ext(outName)))

	if err := p.callWithTimeout(in.Path, workPath, opts); err != nil {
		_ = os.Remove(workPath)
		res.Error = err.Error()
		p.logger.Warn("file conversion failed",
			zap.String("file", in.OriginalName),
			zap.Error(err))
		return res
	}

	outInfo, err := os.Stat(workPath)
	if err != nil || outInfo.Size() == 0 {
		_ = os.Remove(workPath)
		res.Error = "engine produced no output"
		return res
	}
	if err := os.Rename(workPath, outPath); err != nil {
		_ = os.Remove(workPath)
		res.Error = "engine output could not be published"
		return res
	}

	res.ConvertedName = outName
	res.ConvertedSize = outInfo.Size()
	res.Success = true
	return res
}

// callWithTimeout bounds a single engine invocation by wall clock. A call
// that exceeds the timeout is treated as failed and not retried; the
// stranded goroutine finishes in the background.
func (p *Processor) callWithTimeout(inPath, outPath string, opts models.ConversionOptions) error {
	done := make(chan error, 1)
	go func() {
		done <- p.engine.Transform(inPath, outPath, opts.OutputFormat, opts.Quality)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(p.timeout):
		return fmt.Errorf("engine timed out after %s", p.timeout)
	}
}

// outputName derives the destination filename from the naming strategy.
// keep-original swaps the extension only; custom-pattern substitutes
// {name}, {index} (1-based) and {format} tokens, falling back to
// prefix+stem+suffix when no pattern is supplied. The target extension is
// appended regardless.
func outputName(originalName string, opts models.ConversionOptions, index int) string {
	stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	var base string
	switch opts.NamingConvention {
	case models.NamingCustomPattern:
		if opts.Pattern != "" {
			base = strings.NewReplacer(
				"{name}", stem,
				"{index}", strconv.Itoa(index+1),
				"{format}", string(opts.OutputFormat),
			).Replace(opts.Pattern)
		} else {
			base = opts.Prefix + stem + opts.Suffix
		}
	default:
		base = stem
	}

	return security.SanitizeFilename(base + "." + opts.OutputFormat.Ext())
}

// resolveCollision suffixes _N until the name is free in dir.
func resolveCollision(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); err != nil {
			return candidate
		}
	}
}

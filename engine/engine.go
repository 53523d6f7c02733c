// Package engine wraps the external image-processing library behind a
// small interface so the job processor can be tested against a fake and a
// different backend can be swapped in.
package engine

import (
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/pixelforge/pixelforge/models"
)

// Dimensions are pixel dimensions reported by Probe.
type Dimensions struct {
	Width  int
	Height int
}

// Engine is the image-processing collaborator. Calls are opaque and
// blocking; the caller is responsible for wall-clock timeouts.
type Engine interface {
	Probe(path string) (Dimensions, error)
	Transform(inputPath, outputPath string, format models.OutputFormat, quality int) error
}

// ImagingEngine implements Engine on github.com/disintegration/imaging.
type ImagingEngine struct{}

func NewImagingEngine() *ImagingEngine { return &ImagingEngine{} }

func (e *ImagingEngine) Probe(path string) (Dimensions, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Dimensions{}, fmt.Errorf("open image: %w", err)
	}
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
}

func (e *ImagingEngine) Transform(inputPath, outputPath string, format models.OutputFormat, quality int) error {
	src, err := imaging.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	var opts []imaging.EncodeOption
	if format.Lossy() && quality > 0 {
		opts = append(opts, imaging.JPEGQuality(quality))
	}
	// imaging.Save derives the codec from the output extension, which the
	// processor always sets to the target format.
	if err := imaging.Save(src, outputPath, opts...); err != nil {
		return fmt.Errorf("save %s: %w", string(format), err)
	}
	return nil
}

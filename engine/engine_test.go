package engine

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/models"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestProbeReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 32, 48)

	eng := NewImagingEngine()
	dims, err := eng.Probe(src)
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 32, Height: 48}, dims)
}

func TestProbeRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "not-an-image.png")
	require.NoError(t, os.WriteFile(src, []byte("plain text"), 0o644))

	_, err := NewImagingEngine().Probe(src)
	assert.Error(t, err)
}

func TestTransformPNGToJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.jpeg")
	writeTestPNG(t, src, 16, 16)

	eng := NewImagingEngine()
	require.NoError(t, eng.Transform(src, dst, models.FormatJPEG, 80))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// The produced file decodes back with the original geometry.
	dims, err := eng.Probe(dst)
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 16, Height: 16}, dims)
}

func TestTransformAcrossFormats(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	writeTestPNG(t, src, 8, 8)
	eng := NewImagingEngine()

	for _, format := range []models.OutputFormat{models.FormatPNG, models.FormatGIF, models.FormatTIFF, models.FormatBMP} {
		dst := filepath.Join(dir, "out."+format.Ext())
		require.NoError(t, eng.Transform(src, dst, format, 0), "format %s", format)
		assert.FileExists(t, dst)
	}
}

func TestTransformMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := NewImagingEngine().Transform(filepath.Join(dir, "absent.png"), filepath.Join(dir, "out.png"), models.FormatPNG, 0)
	assert.Error(t, err)
}

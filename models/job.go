package models

import (
	"fmt"

	"github.com/pixelforge/pixelforge/apperr"
	"github.com/pixelforge/pixelforge/security"
)

// OutputFormat enumerates the conversion targets the engine can encode.
type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
	FormatGIF  OutputFormat = "gif"
	FormatTIFF OutputFormat = "tiff"
	FormatBMP  OutputFormat = "bmp"
)

var outputFormats = map[OutputFormat]bool{
	FormatJPEG: true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatTIFF: true,
	FormatBMP:  true,
}

// Valid reports whether f is a known output format.
func (f OutputFormat) Valid() bool { return outputFormats[f] }

// Lossy reports whether f supports a quality setting.
func (f OutputFormat) Lossy() bool { return f == FormatJPEG }

// Ext returns the file extension for f, without a dot.
func (f OutputFormat) Ext() string { return string(f) }

// NamingConvention selects how output filenames are derived.
type NamingConvention string

const (
	NamingKeepOriginal  NamingConvention = "keep-original"
	NamingCustomPattern NamingConvention = "custom-pattern"
)

// ConversionOptions are the parameters of one job. They are carried in the
// request and echoed into session metadata, never persisted independently.
type ConversionOptions struct {
	OutputFormat     OutputFormat     `json:"output_format"`
	Quality          int              `json:"quality,omitempty"`
	NamingConvention NamingConvention `json:"naming_convention"`
	Pattern          string           `json:"pattern,omitempty"`
	Prefix           string           `json:"prefix,omitempty"`
	Suffix           string           `json:"suffix,omitempty"`
}

// Validate checks the whole option set and reports every problem found,
// not just the first.
func (o *ConversionOptions) Validate() error {
	var problems []string

	if !o.OutputFormat.Valid() {
		problems = append(problems, fmt.Sprintf("unsupported output format %q", string(o.OutputFormat)))
	}
	if o.Quality != 0 {
		if o.Quality < 1 || o.Quality > 100 {
			problems = append(problems, fmt.Sprintf("quality %d is outside 1-100", o.Quality))
		}
		if o.OutputFormat.Valid() && !o.OutputFormat.Lossy() {
			problems = append(problems, fmt.Sprintf("quality is not applicable to format %q", string(o.OutputFormat)))
		}
	}

	switch o.NamingConvention {
	case NamingKeepOriginal:
		// nothing to check
	case NamingCustomPattern:
		if o.Pattern == "" && o.Prefix == "" && o.Suffix == "" {
			problems = append(problems, "custom-pattern naming requires a pattern, prefix, or suffix")
		}
		problems = append(problems, security.NamePartProblems("pattern", o.Pattern)...)
		problems = append(problems, security.NamePartProblems("prefix", o.Prefix)...)
		problems = append(problems, security.NamePartProblems("suffix", o.Suffix)...)
	default:
		problems = append(problems, fmt.Sprintf("unknown naming convention %q", string(o.NamingConvention)))
	}

	if len(problems) > 0 {
		return apperr.NewValidation(problems...)
	}
	return nil
}

// ConversionResult reports the outcome for one input file. On failure the
// converted fields stay zero; on success the converted file exists on disk
// and is non-empty.
type ConversionResult struct {
	OriginalName  string `json:"original_name"`
	ConvertedName string `json:"converted_name,omitempty"`
	OriginalSize  int64  `json:"original_size"`
	ConvertedSize int64  `json:"converted_size,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

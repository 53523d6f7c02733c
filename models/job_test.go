package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/apperr"
)

func TestConversionOptionsValidate(t *testing.T) {
	cases := []struct {
		name     string
		opts     ConversionOptions
		problems int
	}{
		{
			name: "valid jpeg with quality",
			opts: ConversionOptions{OutputFormat: FormatJPEG, Quality: 80, NamingConvention: NamingKeepOriginal},
		},
		{
			name: "valid png without quality",
			opts: ConversionOptions{OutputFormat: FormatPNG, NamingConvention: NamingKeepOriginal},
		},
		{
			name: "valid custom pattern",
			opts: ConversionOptions{OutputFormat: FormatPNG, NamingConvention: NamingCustomPattern, Pattern: "{name}_{index}"},
		},
		{
			name: "valid prefix only",
			opts: ConversionOptions{OutputFormat: FormatGIF, NamingConvention: NamingCustomPattern, Prefix: "thumb_"},
		},
		{
			name:     "unknown format",
			opts:     ConversionOptions{OutputFormat: "webp", NamingConvention: NamingKeepOriginal},
			problems: 1,
		},
		{
			name:     "quality out of range",
			opts:     ConversionOptions{OutputFormat: FormatJPEG, Quality: 101, NamingConvention: NamingKeepOriginal},
			problems: 1,
		},
		{
			name:     "quality on lossless format",
			opts:     ConversionOptions{OutputFormat: FormatPNG, Quality: 80, NamingConvention: NamingKeepOriginal},
			problems: 1,
		},
		{
			name:     "custom pattern without any parts",
			opts:     ConversionOptions{OutputFormat: FormatPNG, NamingConvention: NamingCustomPattern},
			problems: 1,
		},
		{
			name:     "pattern with unsafe characters",
			opts:     ConversionOptions{OutputFormat: FormatPNG, NamingConvention: NamingCustomPattern, Pattern: "../{name}"},
			problems: 1,
		},
		{
			name:     "unknown naming convention",
			opts:     ConversionOptions{OutputFormat: FormatPNG, NamingConvention: "random"},
			problems: 1,
		},
		{
			name:     "every problem reported at once",
			opts:     ConversionOptions{OutputFormat: "webp", Quality: -3, NamingConvention: "random"},
			problems: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.problems == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Problems, tc.problems)
		})
	}
}

func TestOutputFormatHelpers(t *testing.T) {
	assert.True(t, FormatJPEG.Lossy())
	assert.False(t, FormatPNG.Lossy())
	assert.Equal(t, "jpeg", FormatJPEG.Ext())
	assert.False(t, OutputFormat("svg").Valid())
}

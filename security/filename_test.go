package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadNameProblems(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProblems bool
	}{
		{"simple filename", "image.png", false},
		{"name with spaces", "my holiday photo.jpeg", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"path traversal", "../../etc/passwd", true},
		{"forward slash", "foo/bar.png", true},
		{"backslash", "foo\\bar.png", true},
		{"absolute path", "/etc/passwd", true},
		{"control character", "bad\x00name.png", true},
		{"newline", "bad\nname.png", true},
		{"reserved device name", "CON.png", true},
		{"reserved device name lpt", "lpt1.jpeg", true},
		{"overlong", strings.Repeat("a", 300) + ".png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := UploadNameProblems(tt.input)
			if tt.wantProblems {
				assert.NotEmpty(t, problems)
			} else {
				assert.Empty(t, problems)
			}
		})
	}
}

func TestUploadNameProblemsReportsAll(t *testing.T) {
	// A name that is both traversal and separator-bearing yields more than
	// one problem, not just the first.
	problems := UploadNameProblems("../secret.png")
	assert.GreaterOrEqual(t, len(problems), 2)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal filename", "image.png", "image.png"},
		{"slashes become dashes", "foo/bar.png", "foo-bar.png"},
		{"backslashes become dashes", "foo\\bar.png", "foo-bar.png"},
		{"leading dots removed", "..hidden.png", "hidden.png"},
		{"trailing dots removed", "file.png...", "file.png"},
		{"special characters removed", "file<name>:with*bad?chars.png", "filename-withbadchars.png"},
		{"reserved name gets underscore", "CON.txt", "CON.txt_"},
		{"empty becomes file", "...", "file"},
		{"control characters stripped", "a\x01b.png", "ab.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestNamePartProblems(t *testing.T) {
	assert.Empty(t, NamePartProblems("prefix", ""))
	assert.Empty(t, NamePartProblems("prefix", "thumb_"))
	assert.NotEmpty(t, NamePartProblems("pattern", "a/b"))
	assert.NotEmpty(t, NamePartProblems("pattern", "a*b"))
	assert.NotEmpty(t, NamePartProblems("suffix", "nul"))
}

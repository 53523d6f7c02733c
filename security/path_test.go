package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/apperr"
)

func TestResolveWithin(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		segments []string
		wantErr  bool
	}{
		{"simple file", []string{"converted", "a.jpeg"}, false},
		{"root itself", nil, false},
		{"dot segment", []string{".", "a.jpeg"}, false},
		{"plain traversal", []string{"..", "other"}, true},
		{"nested traversal", []string{"converted", "..", "..", "etc", "passwd"}, true},
		{"encoded traversal", []string{"%2e%2e", "other"}, true},
		{"double-encoded slash", []string{"..%2f..%2fetc%2fpasswd"}, true},
		{"null byte", []string{"a\x00b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(root, tt.segments)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrForbidden)
			} else {
				require.NoError(t, err)
				rel, relErr := filepath.Rel(root, got)
				require.NoError(t, relErr)
				assert.NotContains(t, rel, "..")
			}
		})
	}
}

func TestResolveWithinNeverEscapes(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "session")
	require.NoError(t, os.MkdirAll(root, 0o755))
	secret := filepath.Join(base, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top"), 0o644))

	_, err := ResolveWithin(root, []string{"..", "secret.txt"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = ResolveWithin(root, []string{"%2e%2e%2fsecret.txt"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSplitRequestPath(t *testing.T) {
	assert.Equal(t, []string{"converted", "a.jpeg"}, SplitRequestPath("/converted/a.jpeg"))
	assert.Equal(t, []string{"a.jpeg"}, SplitRequestPath("a.jpeg"))
	assert.Nil(t, SplitRequestPath("///"))
}

package security

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pixelforge/pixelforge/apperr"
)

// ResolveWithin percent-decodes each request path segment individually
// (decoding per segment defeats double-encoding smuggling of separators),
// joins them under root, and verifies the normalized result is root itself
// or a strict descendant of it. Any escape attempt yields ErrForbidden.
func ResolveWithin(root string, segments []string) (string, error) {
	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", apperr.ErrForbidden
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, absRoot)
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return "", apperr.ErrForbidden
		}
		if strings.ContainsRune(decoded, 0) || hasControlChars(decoded) {
			return "", apperr.ErrForbidden
		}
		parts = append(parts, decoded)
	}

	target := filepath.Clean(filepath.Join(parts...))
	rel, err := filepath.Rel(absRoot, target)
	if err != nil {
		return "", apperr.ErrForbidden
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.ErrForbidden
	}
	return target, nil
}

// SplitRequestPath breaks a wildcard route parameter into its segments.
func SplitRequestPath(raw string) []string {
	raw = strings.ReplaceAll(raw, "\\", "/")
	var segs []string
	for _, s := range strings.Split(raw, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

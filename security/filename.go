package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 255

// Windows device names are rejected even on POSIX hosts because session
// archives may be downloaded onto any client platform.
var reservedDeviceNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

func isReservedDeviceName(name string) bool {
	stem := strings.TrimSuffix(strings.ToLower(name), filepath.Ext(name))
	return reservedDeviceNames[stem]
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

// UploadNameProblems validates a client-supplied original filename and
// returns every problem found. An empty slice means the name is acceptable
// as input to SanitizeFilename.
func UploadNameProblems(name string) []string {
	var problems []string
	if strings.TrimSpace(name) == "" {
		return []string{"filename is empty"}
	}
	if len(name) > maxFilenameLen {
		problems = append(problems, fmt.Sprintf("filename %q exceeds %d characters", truncate(name, 40), maxFilenameLen))
	}
	if strings.Contains(name, "..") {
		problems = append(problems, fmt.Sprintf("filename %q contains a path traversal sequence", truncate(name, 80)))
	}
	if strings.ContainsAny(name, "/\\") || filepath.IsAbs(name) {
		problems = append(problems, fmt.Sprintf("filename %q contains path separators", truncate(name, 80)))
	}
	if hasControlChars(name) {
		problems = append(problems, "filename contains control characters")
	}
	if isReservedDeviceName(name) {
		problems = append(problems, fmt.Sprintf("filename %q is a reserved device name", name))
	}
	return problems
}

// NamePartProblems validates a user-supplied naming pattern, prefix, or
// suffix before it is used to derive on-disk names.
func NamePartProblems(field, part string) []string {
	if part == "" {
		return nil
	}
	var problems []string
	if strings.ContainsAny(part, "/\\:*?\"<>|") {
		problems = append(problems, fmt.Sprintf("%s contains filesystem-unsafe characters", field))
	}
	if hasControlChars(part) {
		problems = append(problems, fmt.Sprintf("%s contains control characters", field))
	}
	if isReservedDeviceName(part) {
		problems = append(problems, fmt.Sprintf("%s is a reserved device name", field))
	}
	return problems
}

// SanitizeFilename maps an arbitrary original name to one safe to use as a
// path component. It never returns an empty string.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, sanitized)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	if isReservedDeviceName(sanitized) {
		sanitized = sanitized + "_"
	}
	if len(sanitized) > maxFilenameLen {
		ext := filepath.Ext(sanitized)
		sanitized = sanitized[:maxFilenameLen-len(ext)] + ext
	}
	if sanitized == "" {
		sanitized = "file"
	}
	return sanitized
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

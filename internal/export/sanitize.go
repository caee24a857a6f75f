package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	maxExportName     = 64
	defaultExportName = "Untitled Edit"
)

// ExportName derives the filesystem-safe artifact name for an edit:
// the title sanitized and capped, or the product default when nothing
// printable survives sanitization.
func ExportName(title string) string {
	name := SanitizeName(title, maxExportName)
	if name == "" {
		return defaultExportName
	}
	return name
}

// SanitizeName drops control characters, rewrites runes unsafe for
// filenames as underscores, and truncates to maxLen runes.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case strings.ContainsRune(" -_.,()", r):
			return r
		default:
			return '_'
		}
	}, s)

	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

// ValidateOutputDir rejects missing, non-directory, or traversal paths
// before an exporter writes anything.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output dir is required")
	}
	if dir != filepath.Clean(dir) {
		return fmt.Errorf("output dir must be a clean path")
	}

	slashed := filepath.ToSlash(dir)
	if slashed == ".." || strings.HasPrefix(slashed, "../") ||
		strings.HasSuffix(slashed, "/..") || strings.Contains(slashed, "/../") {
		return fmt.Errorf("output dir cannot contain path traversal")
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("output dir does not exist")
	case err != nil:
		return fmt.Errorf("invalid output dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("output dir is not a directory")
	}
	return nil
}

package engineapi

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dataexplorer/engine/internal/enginerr"
)

const maxPathBytes = 4096

var allowedExtensions = map[string]bool{
	".json": true,
	".csv":  true,
	".vcf":  true,
}

var fileIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// validatePath enforces the shared open_file_info/start_index input rule:
// path length, existence, regular-file-ness, and extension whitelist.
func validatePath(path string) error {
	if len(path) == 0 || len(path) > maxPathBytes {
		return enginerr.Validation("path must be between 1 and %d bytes", maxPathBytes)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return enginerr.Validation("unsupported extension %q", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return enginerr.Validation("cannot access %s: %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return enginerr.Validation("%s is not a regular file", path)
	}
	return nil
}

// validateFileID enforces the 16-hex-character id format used by every
// operation that takes a file-id.
func validateFileID(id string) error {
	if !fileIDPattern.MatchString(id) {
		return enginerr.Validation("invalid file id %q", id)
	}
	return nil
}

const (
	maxPage       = 1_000_000
	maxLimit      = 1000
	maxFilterKeys = 50
	maxKeyChars   = 256
	maxValueChars = 1000
)

// validatePageLimit enforces page ∈ [1, 1e6] and limit ∈ [1, 1000].
func validatePageLimit(page, limit int) error {
	if page < 1 || page > maxPage {
		return enginerr.Validation("page must be between 1 and %d", maxPage)
	}
	if limit < 1 || limit > maxLimit {
		return enginerr.Validation("limit must be between 1 and %d", maxLimit)
	}
	return nil
}

// validateFilters enforces the ≤50 keys / ≤256 chars per key / ≤1000 chars
// per value bound shared by page and search.
func validateFilters(filters map[string]string) error {
	if len(filters) > maxFilterKeys {
		return enginerr.Validation("filters may have at most %d keys", maxFilterKeys)
	}
	for k, v := range filters {
		if len(k) > maxKeyChars {
			return enginerr.Validation("filter key %q exceeds %d characters", k, maxKeyChars)
		}
		if len(v) > maxValueChars {
			return enginerr.Validation("filter value for %q exceeds %d characters", k, maxValueChars)
		}
	}
	return nil
}

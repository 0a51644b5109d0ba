package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"tome/internal/textutil"
)

// hashSegmentLen bounds how much of the content hash appears in staging
// directory names. Twelve hex characters keep names readable while making
// collisions between distinct contents vanishingly unlikely.
const hashSegmentLen = 12

// StagingRoot returns the per-document staging directory rooted at base.
// The name combines the document ID with a content hash prefix so the
// workspace is content addressed; before the first hash it falls back to
// doc-{ID} alone.
func (d Document) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := fmt.Sprintf("doc-%d", d.ID)
	if hash := strings.TrimSpace(d.ContentHash); hash != "" {
		segment = fmt.Sprintf("doc-%d-%s", d.ID, shortHash(hash))
	}
	segment = sanitizeSegment(segment)
	return filepath.Join(base, segment)
}

func shortHash(hash string) string {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) > hashSegmentLen {
		return hash[:hashSegmentLen]
	}
	return hash
}

func sanitizeSegment(value string) string {
	value = textutil.SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.Trim(value, "-_")
	if value == "" {
		return "doc"
	}
	return value
}

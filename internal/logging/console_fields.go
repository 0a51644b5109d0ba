package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"title",
	"status",
	"stage_result",
	"doc_class",
	"class_confidence",
	"page_count",
	"error_message",
	FieldErrorHint,
	FieldImpact,
	"reason",
	"needs_review",
	"review_reason",
	"attempt",
	"max_attempts",
	"backoff",
	"next_attempt",
	"stage_duration",
	"text_chars",
	"table_count",
	"image_count",
	"part_count",
	"chunk_count",
	"vector_dims",
	"term_count",
	"documents_indexed",
	"locks_swept",
	"alerts_pending",
	"workers",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	formatted := make([]string, len(attrs))
	formattedSet := make([]bool, len(attrs))
	ensureValue := func(idx int) string {
		if !formattedSet[idx] {
			formatted[idx] = formatValueForKey(attrs[idx].key, attrs[idx].value)
			formattedSet[idx] = true
		}
		return formatted[idx]
	}
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(result) >= limit {
			break
		}
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			if skipInfoKey(attr.key) {
				break
			}
			if !includeDebug && isDebugOnlyKey(attr.key) {
				hidden++
				break
			}
			val := ensureValue(idx)
			if !includeDebug && shouldHideInfoValue(attr.key, val) {
				hidden++
				break
			}
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
			break
		}
	}

	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		used[idx] = true
		if skipInfoKey(attr.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		val := ensureValue(idx)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			continue
		}
		if limit <= 0 || len(result) < limit {
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
		} else if limit > 0 {
			hidden++
		}
	}

	return result, hidden
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var size int64
		if v.Kind() == slog.KindInt64 {
			size = v.Int64()
		} else {
			size = int64(v.Uint64())
		}
		return formatBytes(size)
	}

	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}

	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldDocumentID, FieldStage, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldCorrelationID,
		FieldAttempt,
		FieldSessionID,
		"content_hash",
		"owner",
		"socket",
		"pid",
		"token_count",
		"postings",
		"score":
		return true
	}
	if strings.Contains(key, "correlation") || strings.Contains(key, "hash") {
		return true
	}
	if strings.HasSuffix(key, "_id") && key != FieldDocumentID {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "reason", "review_reason":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldImpact:
		return "Impact"
	case FieldDocumentID:
		return "Document"
	case FieldStage:
		return "Stage"
	case "title":
		return "Title"
	case "status":
		return "Status"
	case "stage_result":
		return "Result"
	case "doc_class":
		return "Class"
	case "class_confidence":
		return "Confidence"
	case "page_count":
		return "Pages"
	case "error_message":
		return "Error"
	case "needs_review":
		return "Needs Review"
	case "review_reason":
		return "Review Reason"
	case "attempt":
		return "Attempt"
	case "max_attempts":
		return "Attempt Budget"
	case "next_attempt":
		return "Next Attempt"
	case "stage_duration":
		return "Duration"
	case "text_chars":
		return "Extracted Text"
	case "table_count":
		return "Tables"
	case "image_count":
		return "Images"
	case "part_count":
		return "Parts"
	case "chunk_count":
		return "Chunks"
	case "vector_dims":
		return "Vector Dims"
	case "term_count":
		return "Terms"
	case "documents_indexed":
		return "Indexed"
	case "locks_swept":
		return "Locks Swept"
	case "alerts_pending":
		return "Alerts Pending"
	case "workers":
		return "Workers"
	case "reason":
		return "Reason"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func infoSummaryKey(component, documentID string, attrs []kv) string {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		if title := attrValue(attrs, "title"); title != "" {
			documentID = "title:" + title
		} else if component != "" {
			documentID = component
		}
	}
	if documentID == "" {
		return ""
	}
	return documentID
}

func attrValue(attrs []kv, key string) string {
	for _, kv := range attrs {
		if kv.key == key {
			return attrString(kv.value)
		}
	}
	return ""
}

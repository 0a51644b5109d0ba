package api

import (
	"encoding/json"
	"sort"
	"time"
)

// MetadataField extracts a string field from metadata JSON.
func MetadataField(metadataJSON, field, fallback string) string {
	if metadataJSON == "" {
		return fallback
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return fallback
	}
	value, ok := metadata[field].(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// PartsView holds the parts summary persisted by the partsmeta stage,
// decoded for CLI presentation.
type PartsView struct {
	PartCount     int      `json:"part_count"`
	TopParts      []string `json:"top_parts"`
	Manufacturers []string `json:"manufacturers"`
}

// ExtractPartsView decodes the parts summary from document metadata JSON.
// Missing or malformed metadata yields a zero view.
func ExtractPartsView(metadataJSON string) PartsView {
	if metadataJSON == "" {
		return PartsView{}
	}
	var view PartsView
	if err := json.Unmarshal([]byte(metadataJSON), &view); err != nil {
		return PartsView{}
	}
	return view
}

// SortDocumentsNewestFirst orders documents by CreatedAt descending, breaking ties by ID descending.
func SortDocumentsNewestFirst(docs []Document) []Document {
	if len(docs) == 0 {
		return nil
	}
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseAPITime(sorted[i].CreatedAt)
		tj := parseAPITime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseAPITime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseAPITime exposes API timestamp parsing for consumers that need display formatting.
func ParseAPITime(value string) time.Time {
	return parseAPITime(value)
}

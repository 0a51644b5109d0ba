package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"tome/internal/api"
)

func buildCatalogStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildDocumentListRows(docs []api.Document) [][]string {
	if len(docs) == 0 {
		return nil
	}
	sorted := api.SortDocumentsNewestFirst(docs)

	rows := make([][]string, 0, len(sorted))
	for _, doc := range sorted {
		title := strings.TrimSpace(doc.Title)
		if title == "" {
			source := strings.TrimSpace(doc.SourcePath)
			if source != "" {
				title = filepath.Base(source)
			} else {
				title = "Unknown"
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", doc.ID),
			title,
			formatStatusLabel(doc.Status),
			formatStatusLabel(doc.DocClass),
			formatDisplayTime(doc.CreatedAt),
			formatHash(doc.ContentHash),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t := api.ParseAPITime(value)
	if t.IsZero() {
		return value
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatHash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

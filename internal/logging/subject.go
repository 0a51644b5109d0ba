package logging

import "strings"

// FormatSubject builds the document/stage subject string used in console output.
func FormatSubject(documentID, stage string) string {
	documentID = strings.TrimSpace(documentID)
	stage = strings.TrimSpace(stage)
	switch {
	case documentID != "" && stage != "":
		return "Document #" + documentID + " (" + stage + ")"
	case documentID != "":
		return "Document #" + documentID
	case stage != "":
		return stage
	}
	return ""
}

package api

import (
	"encoding/json"
	"time"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Document describes a catalog entry in a transport-friendly format.
type Document struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	SourcePath      string          `json:"sourcePath"`
	StagedPath      string          `json:"stagedPath,omitempty"`
	ContentHash     string          `json:"contentHash,omitempty"`
	Status          string          `json:"status"`
	RequestID       string          `json:"requestId,omitempty"`
	DocClass        string          `json:"docClass,omitempty"`
	ClassConfidence float64         `json:"classConfidence,omitempty"`
	PageCount       int             `json:"pageCount,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	NeedsReview     bool            `json:"needsReview"`
	ReviewReason    string          `json:"reviewReason,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
	CompletedAt     string          `json:"completedAt,omitempty"`
	NextAttemptAt   string          `json:"nextAttemptAt,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	Stages          []StageState    `json:"stages,omitempty"`
}

// StageState reports one stage's recorded outcome for a document.
type StageState struct {
	Name          string `json:"name"`
	Result        string `json:"result"`
	Attempts      int    `json:"attempts"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	MarkerHash    string `json:"markerHash,omitempty"`
	ArtifactPath  string `json:"artifactPath,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running      bool           `json:"running"`
	QueueStats   map[string]int `json:"queueStats"`
	LastError    string         `json:"lastError,omitempty"`
	LastDocument *Document      `json:"lastDocument,omitempty"`
	StageHealth  []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labeled severity/detail pair for status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// DependencySummary aggregates dependency readiness counts.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	CatalogPath  string             `json:"catalogPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// Alert describes a queued or delivered alert in a transport-friendly format.
type Alert struct {
	ID            string `json:"id"`
	Severity      string `json:"severity"`
	Event         string `json:"event"`
	DocumentID    int64  `json:"documentId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Payload       string `json:"payload,omitempty"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"lastError,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	SentAt        string `json:"sentAt,omitempty"`
}

// SearchHit describes one full-text search result.
type SearchHit struct {
	DocumentID int64   `json:"documentId"`
	Title      string  `json:"title"`
	DocClass   string  `json:"docClass,omitempty"`
	Score      float64 `json:"score"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DocumentListResponse wraps a collection of documents for API responses.
type DocumentListResponse struct {
	Documents []Document `json:"documents"`
}

// DocumentResponse wraps a single document.
type DocumentResponse struct {
	Document Document `json:"document"`
}

// LogEvent is the transport form of a structured daemon log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	DocumentID    int64             `json:"document_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField carries one label/value pair attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse pages structured log events for live tailing.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

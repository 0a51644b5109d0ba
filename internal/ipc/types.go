package ipc

import "tome/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// DaemonStatusRequest fetches daemon status.
type DaemonStatusRequest struct{}

// Document mirrors the HTTP API document DTO for internal IPC callers.
type Document = api.Document

// StageState mirrors per-stage execution state for a document.
type StageState = api.StageState

// StageHealth describes readiness of a pipeline stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// Alert mirrors an alert outbox row.
type Alert = api.Alert

// SearchHit mirrors one full-text search result.
type SearchHit = api.SearchHit

// DaemonStatusResponse represents combined daemon/workflow status information.
type DaemonStatusResponse struct {
	Running      bool               `json:"running"`
	QueueStats   map[string]int     `json:"queue_stats"`
	LastError    string             `json:"last_error"`
	LastDocument *Document          `json:"last_document"`
	LockPath     string             `json:"lock_path"`
	CatalogPath  string             `json:"catalog_path"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
	PID          int                `json:"pid"`
}

// SubmitRequest records a source document for processing.
type SubmitRequest struct {
	SourcePath string `json:"source_path"`
	Title      string `json:"title"`
}

// SubmitResponse reports the catalog row and how the submission resolved.
type SubmitResponse struct {
	Document Document `json:"document"`
	Outcome  string   `json:"outcome"`
}

// DocumentStatusRequest fetches per-stage progress for one document.
type DocumentStatusRequest struct {
	ID int64 `json:"id"`
}

// DocumentStatusResponse reports overall plus per-stage status.
type DocumentStatusResponse struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Status string       `json:"status"`
	Stages []StageState `json:"stages"`
}

// ListRequest filters document listing by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains catalog entries.
type ListResponse struct {
	Documents []Document `json:"documents"`
}

// DescribeRequest fetches a single document by id.
type DescribeRequest struct {
	ID int64 `json:"id"`
}

// DescribeResponse contains the full document record.
type DescribeResponse struct {
	Document Document `json:"document"`
}

// RetryRequest retries failed documents. Empty list means all failed.
type RetryRequest struct {
	IDs []int64 `json:"ids"`
}

// RetryResponse reports number of retried documents.
type RetryResponse struct {
	Updated int64 `json:"updated"`
}

// RemoveRequest removes specific documents by ID.
type RemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// RemoveResponse reports number of removed entries.
type RemoveResponse struct {
	Removed int64 `json:"removed"`
}

// ClearRequest removes all documents.
type ClearRequest struct{}

// ClearResponse reports number of removed entries.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// ClearCompletedRequest removes completed documents.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports number of removed entries.
type ClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// ClearFailedRequest removes failed documents.
type ClearFailedRequest struct{}

// ClearFailedResponse reports number of removed entries.
type ClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// SweepRequest runs the catalog maintenance pass.
type SweepRequest struct{}

// SweepResponse reports what the maintenance pass reclaimed.
type SweepResponse struct {
	DocumentsReclaimed int64    `json:"documents_reclaimed"`
	LocksExpired       int      `json:"locks_expired"`
	WorkspacesRemoved  []string `json:"workspaces_removed"`
	AlertsPurged       int64    `json:"alerts_purged"`
}

// AlertsRequest lists alert outbox rows. An empty status lists all.
type AlertsRequest struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

// AlertsResponse contains alert outbox rows, newest first.
type AlertsResponse struct {
	Alerts []Alert `json:"alerts"`
}

// SearchRequest runs a full-text query over indexed documents.
type SearchRequest struct {
	Terms []string `json:"terms"`
	Limit int      `json:"limit"`
}

// SearchResponse contains ranked search results.
type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// CatalogHealthRequest fetches aggregate diagnostics.
type CatalogHealthRequest struct{}

// CatalogHealthResponse reports catalog health information.
type CatalogHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalDocuments   int      `json:"total_documents"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers an alert webhook test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports webhook test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

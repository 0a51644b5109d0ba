package catalog

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a document in the pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ShutdownStopReason is the error message set when in-flight documents are
// released during daemon shutdown.
const ShutdownStopReason = "Daemon stopped"

// StageResult describes the recorded outcome of a stage execution.
type StageResult string

const (
	// ResultPending marks a stage that has not produced an outcome yet.
	ResultPending StageResult = ""
	// ResultRunning marks a stage currently holding its advisory lock.
	ResultRunning StageResult = "running"
	ResultSuccess StageResult = "success"
	// ResultSkipped is recorded for disabled stages and marker hits.
	ResultSkipped   StageResult = "skipped"
	ResultRetryable StageResult = "retryable_failure"
	ResultPermanent StageResult = "permanent_failure"
	ResultFatal     StageResult = "fatal_failure"
	// ResultBlocked marks stages that will never run because a prerequisite
	// failed permanently.
	ResultBlocked StageResult = "blocked"
)

// Terminal reports whether a stage outcome can still change.
func (r StageResult) Terminal() bool {
	switch r {
	case ResultSuccess, ResultSkipped, ResultPermanent, ResultFatal, ResultBlocked:
		return true
	default:
		return false
	}
}

// Satisfies reports whether the outcome satisfies dependent stages.
func (r StageResult) Satisfies() bool {
	return r == ResultSuccess || r == ResultSkipped
}

// Document represents a catalog entry persisted in SQLite.
type Document struct {
	ID              int64
	SourcePath      string
	StagedPath      string
	Title           string
	ContentHash     string
	Status          Status
	RequestID       string
	DocClass        string
	ClassConfidence float64
	PageCount       int
	ErrorMessage    string
	MetadataJSON    string
	NeedsReview     bool
	ReviewReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	NextAttemptAt   *time.Time
	LastHeartbeat   *time.Time
}

// IsProcessing returns true when the document is leased by a worker.
func (d Document) IsProcessing() bool {
	return d.Status == StatusInProgress
}

// Terminal reports whether the document reached a final state.
func (d Document) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// SetFailed marks the document as failed with the given error message.
func (d *Document) SetFailed(message string) {
	d.Status = StatusFailed
	d.ErrorMessage = message
	d.LastHeartbeat = nil
	d.NextAttemptAt = nil
}

// StageState records the mutable execution state of one stage for a document.
type StageState struct {
	DocumentID    int64
	Stage         string
	Result        StageResult
	Attempts      int
	NextAttemptAt *time.Time
	LastError     string
	UpdatedAt     time.Time
}

// Due reports whether the stage may be attempted at the given instant.
func (s StageState) Due(now time.Time) bool {
	if s.NextAttemptAt == nil {
		return true
	}
	return !now.Before(*s.NextAttemptAt)
}

// Marker is a durable completion record for (document, stage, content hash).
type Marker struct {
	DocumentID   int64
	Stage        string
	ContentHash  string
	ArtifactPath string
	ProducedAt   time.Time
}

// Lock is an advisory execution lock row for (document, stage).
type Lock struct {
	DocumentID int64
	Stage      string
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// AlertStatus tracks webhook delivery state for a queued alert.
type AlertStatus string

const (
	AlertPending AlertStatus = "pending"
	AlertSent    AlertStatus = "sent"
	AlertFailed  AlertStatus = "failed"
)

// Alert is a durable outbox row consumed by the alert dispatcher.
type Alert struct {
	ID            string
	CreatedAt     time.Time
	Severity      string
	Event         string
	DocumentID    *int64
	CorrelationID string
	Payload       string
	Status        AlertStatus
	Attempts      int
	LastError     string
	SentAt        *time.Time
}

// SearchHit is one result row from the postings index.
type SearchHit struct {
	DocumentID int64
	Title      string
	DocClass   string
	Score      float64
}

// HealthSummary describes aggregated document counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalDocuments   int
	Error            string
}

package model

import "time"

// Resolution names how a Conflict was (or will be) settled.
type Resolution string

const (
	ResolutionNone       Resolution = ""
	ResolutionLocalWins  Resolution = "local-wins"
	ResolutionRemoteWins Resolution = "remote-wins"
	ResolutionNewestWins Resolution = "newest-wins"
	ResolutionManual     Resolution = "manual"
)

// Conflict records that both sides mutated a task since its last successful
// sync. It lives from detection until resolution; at most one exists per
// taskId in the live set.
type Conflict struct {
	TaskID         int64      `json:"taskId"`
	DetectedAt     time.Time  `json:"detectedAt"`
	LocalSnapshot  Task       `json:"localSnapshot"`
	RemoteSnapshot Task       `json:"remoteSnapshot"`
	Resolution     Resolution `json:"resolution"`
	ResolvedAt     time.Time  `json:"resolvedAt,omitempty"`
}

// Operation is the kind of change an offline queue entry replays.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueEntry is a durable, ordered record of a pending local change destined
// for the secondary store. Ordering is FIFO by EnqueuedAt, subject to
// NextAttemptAt <= now.
type QueueEntry struct {
	ID             string    `json:"id"`
	TaskID         int64     `json:"taskId"`
	Operation      Operation `json:"operation"`
	Payload        Task      `json:"payload"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
	Sequence       int64     `json:"sequence"`
	RetryCount     int       `json:"retryCount"`
	NextAttemptAt  time.Time `json:"nextAttemptAt"`
	LastError      string    `json:"lastError,omitempty"`
	DeadLettered   bool      `json:"deadLettered"`
	DeadLetteredAt time.Time `json:"deadLetteredAt,omitempty"`
}

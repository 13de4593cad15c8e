// Package model defines the task, subtask and conflict records shared by
// every store adapter, the offline queue, and the sync engine.
package model

import (
	"strconv"
	"time"
)

// Status is the lifecycle state of a Task or Subtask.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
	StatusDeferred   Status = "deferred"
)

// Priority ranks a Task or Subtask for scheduling and display.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// SyncStatus describes how a Task's local state relates to its remote mirror.
type SyncStatus string

const (
	SyncSynced   SyncStatus = "synced"
	SyncPending  SyncStatus = "pending"
	SyncConflict SyncStatus = "conflict"
	SyncError    SyncStatus = "error"
)

// Subtask is a Task-shaped record owned by a parent Task. It carries no
// independent dependency set and no nested subtasks of its own.
type Subtask struct {
	ParentID     int64    `json:"parentId"`
	SubID        int64    `json:"subId"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`

	RemoteItemID string `json:"remoteItemId,omitempty"`
}

// DottedID returns the canonical "<parentId>.<subId>" external identifier.
func (s Subtask) DottedID() string {
	return DottedSubtaskID(s.ParentID, s.SubID)
}

// Task is the unit of synchronization: identified by a local integer id and
// optionally a remote item id assigned by the remote store on creation.
type Task struct {
	ID           int64   `json:"id"`
	RemoteItemID string  `json:"remoteItemId,omitempty"`

	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`

	Dependencies []int64   `json:"dependencies,omitempty"`
	Subtasks     []Subtask `json:"subtasks,omitempty"`

	// Sync-tracking fields. Times are stored normalized (UTC); zero value
	// means "never" and is treated as the epoch by the conflict detector.
	LastSyncedAt       time.Time  `json:"lastSyncedAt,omitempty"`
	LastModifiedLocal  time.Time  `json:"lastModifiedLocal,omitempty"`
	LastModifiedRemote time.Time  `json:"lastModifiedRemote,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt,omitempty"`
	SyncStatus         SyncStatus `json:"syncStatus,omitempty"`
	LastSyncError      string     `json:"lastSyncError,omitempty"`
}

// EffectiveLocalModified returns LastModifiedLocal, falling back to
// UpdatedAt, falling back to the zero time (epoch) when both are unset.
// This mirrors the timestamp fallback chain the sync engine uses for
// conflict detection.
func (t Task) EffectiveLocalModified() time.Time {
	if !t.LastModifiedLocal.IsZero() {
		return t.LastModifiedLocal
	}
	return t.UpdatedAt
}

// EffectiveRemoteModified returns LastModifiedRemote, falling back to
// UpdatedAt, falling back to the zero time (epoch) when both are unset.
func (t Task) EffectiveRemoteModified() time.Time {
	if !t.LastModifiedRemote.IsZero() {
		return t.LastModifiedRemote
	}
	return t.UpdatedAt
}

// Clone returns a deep copy so callers holding a store's cached snapshot
// cannot mutate it through the returned value.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = append([]int64(nil), t.Dependencies...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	return c
}

// DottedSubtaskID formats the canonical external identifier for a subtask.
func DottedSubtaskID(parentID, subID int64) string {
	return strconv.FormatInt(parentID, 10) + "." + strconv.FormatInt(subID, 10)
}

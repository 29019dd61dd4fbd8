package models

import "time"

// Knowledge-base lifecycle events published after a rebuild.
const (
	EventIndexRebuilt       = "knowledge_base.rebuilt"
	EventIndexRebuildFailed = "knowledge_base.rebuild_failed"
)

type IndexEvent struct {
	Type       string    `json:"type"`
	Backend    string    `json:"backend"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

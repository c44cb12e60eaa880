package models

import "time"

type SyncSource string

const (
	SyncSourceLive    SyncSource = "live"
	SyncSourceFixture SyncSource = "fixture"
)

// SyncReport describes one sync cycle.
type SyncReport struct {
	Source     SyncSource `json:"source"`
	Timestamp  time.Time  `json:"timestamp"`
	DurationMS int64      `json:"duration_ms"`
	TotalChats int        `json:"total_chats"`
	NewChats   int        `json:"new_chats"`
	Error      string     `json:"error,omitempty"`
	// StoreErrors counts metadata writes that failed without failing the cycle.
	StoreErrors int `json:"store_errors,omitempty"`
}

type SyncResult struct {
	Conversations []ConversationView `json:"conversations"`
	Sync          SyncReport         `json:"sync"`
}

type SyncOptions struct {
	Force    bool
	MaxChats int
}

// BridgeStatus is the cached outcome of endpoint discovery.
type BridgeStatus struct {
	Connected bool      `json:"connected"`
	Family    string    `json:"family,omitempty"`
	BaseURL   string    `json:"base_url"`
	Networks  []string  `json:"networks,omitempty"`
	Accounts  int       `json:"accounts"`
	LastError string    `json:"last_error,omitempty"`
	ProbedAt  time.Time `json:"probed_at"`
}

// Package record defines the versioned conversation record shapes and the
// migration between them.
//
// Information Hiding:
// - Version detection and legacy decoding happen once, at the storage boundary
// - Callers outside this package only ever see the current Record shape
// - The legacy shape is exported for tests and migration tooling, not for
//   general use

package record

import (
	"time"
)

// CurrentVersion is the schema version written by this release.
//
// Legacy records carry no version field at all; the absence of the field is
// the version marker. Anything without an explicit version == 2 decodes as
// legacy, even if some current-shaped fields happen to be present.
const CurrentVersion = 2

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message authored by the human user.
	RoleUser Role = "user"
	// RoleModel is a message authored by the model.
	RoleModel Role = "model"
)

// MessageMetadata carries agent-to-agent provenance for a message.
// The persistence layer never interprets these fields; it only guarantees
// they round-trip unchanged.
type MessageMetadata struct {
	SenderID   string `json:"senderId,omitempty"`
	SenderType string `json:"senderType,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// Message is a single entry in a conversation's ordered message list.
type Message struct {
	Role     Role             `json:"role"`
	Text     string           `json:"text"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// Metadata holds the extensible per-conversation fields introduced with
// the current schema version.
type Metadata struct {
	AgentMode           string   `json:"agentMode,omitempty"`
	ParticipatingAgents []string `json:"participatingAgents,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Archived            bool     `json:"archived"`
}

// Record is the current (version 2) conversation record.
type Record struct {
	Version     int       `json:"version"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Timestamp   int64     `json:"timestamp"`   // creation time, epoch ms
	LastUpdated int64     `json:"lastUpdated"` // epoch ms, always set
	Messages    []Message `json:"messages"`
	Metadata    Metadata  `json:"metadata"`

	// SessionID is the owning chat session, when the embedding
	// application tracks one. Optional; round-tripped unchanged.
	SessionID string `json:"sessionId,omitempty"`

	// Migrated reports that this record was decoded from the legacy
	// on-disk shape and has not yet been persisted in the current shape.
	// It is never serialized; the manager uses it to decide write-back.
	Migrated bool `json:"-"`
}

// Legacy is the pre-versioning (V1) conversation record. It carries no
// version field; that absence is what identifies it.
type Legacy struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Timestamp   int64     `json:"timestamp"` // creation time, epoch ms
	Messages    []Message `json:"messages"`
	LastUpdated *int64    `json:"lastUpdated,omitempty"`
}

// MessageCount returns the number of messages in the record.
func (r *Record) MessageCount() int {
	return len(r.Messages)
}

// Touch bumps LastUpdated to the current wall clock.
func (r *Record) Touch() {
	r.LastUpdated = NowMillis()
}

// NowMillis returns the current time as epoch milliseconds, the unit used
// for every timestamp in the persisted format.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

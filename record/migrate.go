// Legacy record detection, validation and migration.
//
// Migration is pure: it never touches storage, and re-applying it to its
// own output is a no-op because the output carries an explicit version tag
// and is therefore no longer detected as legacy.

package record

import (
	"encoding/json"
	"fmt"
)

// Version labels the two schema generations this package understands.
type Version int

const (
	// VersionLegacy is the untagged pre-versioning shape.
	VersionLegacy Version = 1
	// VersionCurrent is the explicitly tagged current shape.
	VersionCurrent Version = CurrentVersion
)

// versionProbe reads just enough of a raw record to classify it.
type versionProbe struct {
	Version *int `json:"version"`
}

// DetectVersion classifies raw record JSON. A record is current if and only
// if it carries an explicit version field equal to CurrentVersion; anything
// else is legacy. No field-by-field heuristics: the discriminator is the
// version tag alone.
func DetectVersion(raw []byte) Version {
	var probe versionProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return VersionLegacy
	}
	if probe.Version != nil && *probe.Version == CurrentVersion {
		return VersionCurrent
	}
	return VersionLegacy
}

// legacyEnvelope decodes the legacy shape loosely so that missing and
// wrong-typed fields can be told apart and reported with the record id.
type legacyEnvelope struct {
	ID          any             `json:"id"`
	Title       any             `json:"title"`
	Timestamp   any             `json:"timestamp"`
	LastUpdated any             `json:"lastUpdated"`
	Messages    json.RawMessage `json:"messages"`
}

// DecodeLegacy parses raw legacy JSON, validates it, and migrates it to the
// current shape. The returned record has Migrated set so the caller can
// decide whether to persist the upgrade.
//
// A record whose id, title or timestamp is missing or wrong-typed fails
// with a MalformedRecordError carrying the offending id, or "unknown" when
// the id itself is unusable.
func DecodeLegacy(raw []byte) (*Record, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &MalformedRecordError{ID: UnknownID, Reason: "invalid JSON", Cause: err}
	}

	legacy, err := env.validate()
	if err != nil {
		return nil, err
	}

	rec := MigrateLegacy(legacy)
	rec.Migrated = true
	return &rec, nil
}

// validate converts the loose envelope into a typed Legacy value.
func (env *legacyEnvelope) validate() (Legacy, error) {
	id, ok := env.ID.(string)
	if !ok || id == "" {
		return Legacy{}, &MalformedRecordError{ID: UnknownID, Reason: "missing or non-string id"}
	}

	title, ok := env.Title.(string)
	if !ok {
		return Legacy{}, &MalformedRecordError{ID: id, Reason: "missing or non-string title"}
	}

	// encoding/json decodes all JSON numbers into float64.
	ts, ok := env.Timestamp.(float64)
	if !ok {
		return Legacy{}, &MalformedRecordError{ID: id, Reason: "missing or non-numeric timestamp"}
	}

	legacy := Legacy{
		ID:        id,
		Title:     title,
		Timestamp: int64(ts),
		Messages:  []Message{},
	}

	if env.LastUpdated != nil {
		lu, ok := env.LastUpdated.(float64)
		if !ok {
			return Legacy{}, &MalformedRecordError{ID: id, Reason: "non-numeric lastUpdated"}
		}
		v := int64(lu)
		legacy.LastUpdated = &v
	}

	if len(env.Messages) > 0 {
		if err := json.Unmarshal(env.Messages, &legacy.Messages); err != nil {
			return Legacy{}, &MalformedRecordError{ID: id, Reason: "invalid messages list", Cause: err}
		}
		if legacy.Messages == nil {
			legacy.Messages = []Message{}
		}
	}

	return legacy, nil
}

// MigrateLegacy upgrades a legacy record to the current shape. Every field
// maps 1:1; LastUpdated falls back to the creation timestamp when the
// legacy record never recorded one. Message order and contents are
// preserved exactly, including a zero-length list.
func MigrateLegacy(legacy Legacy) Record {
	lastUpdated := legacy.Timestamp
	if legacy.LastUpdated != nil {
		lastUpdated = *legacy.LastUpdated
	}

	messages := make([]Message, len(legacy.Messages))
	copy(messages, legacy.Messages)

	return Record{
		Version:     CurrentVersion,
		ID:          legacy.ID,
		Title:       legacy.Title,
		Timestamp:   legacy.Timestamp,
		LastUpdated: lastUpdated,
		Messages:    messages,
		Metadata:    Metadata{Archived: false},
	}
}

// UnknownID is reported by MalformedRecordError when the record's own id
// is missing or unusable.
const UnknownID = "unknown"

// MalformedRecordError reports a stored record that cannot be parsed or
// migrated. It always carries the record id (or UnknownID) so batch
// operations can attribute the failure.
type MalformedRecordError struct {
	ID     string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed conversation record %q: %s", e.ID, e.Reason)
}

// Unwrap returns the underlying parse error, if any.
func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a MalformedRecordError, so callers can use
// errors.Is without constructing an identical value.
func (e *MalformedRecordError) Is(target error) bool {
	_, ok := target.(*MalformedRecordError)
	return ok
}

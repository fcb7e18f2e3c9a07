// Package feeder bridges the external blocking work queue to the
// pipeline's feed-queue: one worker owns one queue client, decodes
// whatever payload it pops, and forwards valid events downstream.
package feeder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/praetorian-inc/infobserve/pkg/types"
)

// QuitSentinel is the literal payload that instructs a feeder worker to
// stop its loop.
const QuitSentinel = "QUIT"

// MissingFieldError reports that a required envelope field was absent
// or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("envelope: missing field %q", e.Field)
}

// MalformedFieldError reports that a required envelope field was
// present but could not be interpreted.
type MalformedFieldError struct {
	Field  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("envelope: malformed field %q: %s", e.Field, e.Reason)
}

// envelope mirrors the wire representation of one event payload.
type envelope struct {
	URL          *string `json:"url"`
	Source       *string `json:"source"`
	RawContent   *string `json:"raw_content"`
	Filename     *string `json:"filename"`
	Creator      *string `json:"creator"`
	Size         *int64  `json:"size"`
	CreatedAt    *string `json:"created_at"`
	DiscoveredAt *string `json:"discovered_at"`
}

// DecodeEnvelope parses one popped payload into an Event. The QUIT
// sentinel is never passed here — callers check for it first (see
// Worker.Run) since it instructs the worker to stop, not a decode.
func DecodeEnvelope(payload string) (types.Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return types.Event{}, fmt.Errorf("envelope: invalid JSON: %w", err)
	}

	url, err := requireString(env.URL, "url")
	if err != nil {
		return types.Event{}, err
	}
	source, err := requireString(env.Source, "source")
	if err != nil {
		return types.Event{}, err
	}
	rawContent, err := requireString(env.RawContent, "raw_content")
	if err != nil {
		return types.Event{}, err
	}
	filename, err := requireString(env.Filename, "filename")
	if err != nil {
		return types.Event{}, err
	}
	creator, err := requireString(env.Creator, "creator")
	if err != nil {
		return types.Event{}, err
	}

	if env.Size == nil {
		return types.Event{}, &MissingFieldError{Field: "size"}
	}
	if *env.Size < 0 {
		return types.Event{}, &MalformedFieldError{Field: "size", Reason: "must be non-negative"}
	}

	createdAtStr, err := requireString(env.CreatedAt, "created_at")
	if err != nil {
		return types.Event{}, err
	}
	createdAt, err := time.ParseInLocation(types.DateTimeLayout, createdAtStr, time.Local)
	if err != nil {
		return types.Event{}, &MalformedFieldError{Field: "created_at", Reason: err.Error()}
	}

	discoveredAtStr, err := requireString(env.DiscoveredAt, "discovered_at")
	if err != nil {
		return types.Event{}, err
	}
	discoveredAt, err := time.ParseInLocation(types.DateTimeLayout, discoveredAtStr, time.Local)
	if err != nil {
		return types.Event{}, &MalformedFieldError{Field: "discovered_at", Reason: err.Error()}
	}

	return types.Event{
		Source:       source,
		URL:          url,
		Size:         *env.Size,
		Filename:     filename,
		Creator:      creator,
		RawContent:   rawContent,
		CreatedAt:    createdAt,
		DiscoveredAt: discoveredAt,
	}, nil
}

func requireString(v *string, field string) (string, error) {
	if v == nil || *v == "" {
		return "", &MissingFieldError{Field: field}
	}
	return *v, nil
}

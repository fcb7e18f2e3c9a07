// Package types holds the entities that flow through the processing
// pipeline: captured events, their flattened rule matches, and the
// persisted rows a loader writes for each.
package types

import "time"

// Event is one captured file-like artifact (paste, gist, upload) to be
// scanned. ID is nil until a loader inserts the row and the store
// assigns one.
type Event struct {
	ID           *int64
	Source       string
	URL          string
	Size         int64
	Filename     string
	Creator      string
	RawContent   string
	CreatedAt    time.Time
	DiscoveredAt time.Time
}

// DateTimeLayout is the exact timestamp format accepted in event
// envelopes, per the external queue's wire format.
const DateTimeLayout = "2006/01/02-15:04:05"

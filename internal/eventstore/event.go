package eventstore

import "time"

// Event is one recorded step of a build run. Payload holds the JSON of one
// of the payload structs in events.go.
type Event struct {
	ID       int64
	RunID    string
	Type     string
	At       time.Time
	Payload  []byte
	Metadata map[string]string
}

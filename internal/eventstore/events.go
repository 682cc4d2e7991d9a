package eventstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/gallerybuilder/internal/logfields"
)

// Event types written by a build run.
const (
	TypeRunStarted       = "run_started"
	TypePageRendered     = "page_rendered"
	TypePageFailed       = "page_failed"
	TypeConversionFailed = "conversion_failed"
	TypeGCRemoved        = "gc_removed"
	TypeRunCompleted     = "run_completed"
)

// RunStarted is recorded before any work is done.
type RunStarted struct {
	Dest       string `json:"dest"`
	Template   string `json:"template"`
	FullUpdate bool   `json:"full_update"`
	RegenPages bool   `json:"regen_pages"`
	GC         bool   `json:"gc"`
}

// PageRendered is recorded after a page was written.
type PageRendered struct {
	Dir  string `json:"dir"`
	Page string `json:"page"`
}

// PageFailed is recorded when a page could not be rendered.
type PageFailed struct {
	Dir      string `json:"dir"`
	Page     string `json:"page"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// ConversionFailed is recorded for every failed conversion command.
type ConversionFailed struct {
	Asset   string `json:"asset"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// GCRemoved is recorded once per artifact kind a collection pass removed.
type GCRemoved struct {
	Kind  string   `json:"kind"`
	Paths []string `json:"paths"`
}

// RunCompleted is the last event of a run.
type RunCompleted struct {
	Status         string `json:"status"`
	Thumbnails     int    `json:"thumbnails"`
	ThumbnailFails int    `json:"thumbnail_failures"`
	Pages          int    `json:"pages"`
	PageFailures   int    `json:"page_failures"`
	Warnings       int    `json:"warnings"`
	Removed        int    `json:"removed"`
	DurationMS     int64  `json:"duration_ms"`
}

// Journal appends the events of one run. A nil Journal or a Journal
// without a store drops events, so callers never check.
type Journal struct {
	store  Store
	runID  string
	logger *slog.Logger
}

// NewJournal creates a journal for runID.
func NewJournal(store Store, runID string) *Journal {
	return &Journal{store: store, runID: runID, logger: slog.Default()}
}

// RunID returns the run the journal writes for.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Record marshals payload and appends it as an event of eventType. Failures
// are logged; the build never fails because of its own history.
func (j *Journal) Record(ctx context.Context, eventType string, payload any) {
	if j == nil || j.store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		j.logger.Warn("Failed to encode build event",
			logfields.RunID(j.runID),
			logfields.Kind(eventType),
			logfields.Error(errors.EventStoreError("marshal payload").WithCause(err).Build()))
		return
	}
	if err := j.store.Append(ctx, j.runID, eventType, data, nil); err != nil {
		j.logger.Warn("Failed to record build event",
			logfields.RunID(j.runID),
			logfields.Kind(eventType),
			logfields.Error(err))
	}
}

// Decode unmarshals the payload of e into out.
func Decode(e Event, out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return errors.EventStoreError("failed to unmarshal event payload").
			WithCause(err).
			WithContext("event_type", e.Type).
			Build()
	}
	return nil
}

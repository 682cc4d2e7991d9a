package eventstore

import (
	"context"
	"sort"
	"time"
)

const (
	runStatusRunning = "running"
)

// RunSummary is a read model of one build run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	Dest        string        `json:"dest"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Pages       int           `json:"pages"`
	FailedPages []string      `json:"failed_pages,omitempty"`
	Conversions int           `json:"conversion_failures"`
	Removed     int           `json:"removed"`
}

// History reconstructs run summaries from the events between since and
// now, newest first, at most limit entries (0 for all).
func History(ctx context.Context, store Store, since time.Time, limit int) ([]*RunSummary, error) {
	events, err := store.GetRange(ctx, since, time.Now().Add(time.Hour))
	if err != nil {
		return nil, err
	}

	runs := map[string]*RunSummary{}
	for _, e := range events {
		apply(runs, e)
	}

	out := make([]*RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func apply(runs map[string]*RunSummary, e Event) {
	r, ok := runs[e.RunID]
	if !ok {
		r = &RunSummary{RunID: e.RunID, Status: runStatusRunning, StartedAt: e.At}
		runs[e.RunID] = r
	}

	switch e.Type {
	case TypeRunStarted:
		var p RunStarted
		if Decode(e, &p) == nil {
			r.Dest = p.Dest
		}
		r.StartedAt = e.At
	case TypePageRendered:
		r.Pages++
	case TypePageFailed:
		var p PageFailed
		if Decode(e, &p) == nil {
			r.FailedPages = append(r.FailedPages, p.Page)
		}
	case TypeConversionFailed:
		r.Conversions++
	case TypeGCRemoved:
		var p GCRemoved
		if Decode(e, &p) == nil {
			r.Removed += len(p.Paths)
		}
	case TypeRunCompleted:
		var p RunCompleted
		if Decode(e, &p) == nil {
			r.Status = p.Status
			r.Duration = time.Duration(p.DurationMS) * time.Millisecond
		}
		ts := e.At
		r.CompletedAt = &ts
	}
}

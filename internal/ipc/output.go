package ipc

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Output handles NDJSON (newline-delimited JSON) run events.
// All methods are thread-safe.
type Output struct {
	mu sync.Mutex
	w  io.Writer
}

// NewOutput creates a new NDJSON output handler writing to w.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Discard returns an output that drops every event.
func Discard() *Output {
	return NewOutput(io.Discard)
}

// SourceStart announces that a source is about to be fetched.
func (o *Output) SourceStart(runID, source string) {
	o.writeJSON(map[string]interface{}{
		"type":   "source_start",
		"run_id": runID,
		"source": source,
	})
}

// SourceFailed reports a source that was skipped.
func (o *Output) SourceFailed(runID, source string, err error) {
	o.writeJSON(map[string]interface{}{
		"type":   "source_failed",
		"run_id": runID,
		"source": source,
		"error":  err.Error(),
	})
}

// SourceDone reports the game counters of one processed source.
func (o *Output) SourceDone(runID, source string, seen, inserted, duplicate, dropped int) {
	o.writeJSON(map[string]interface{}{
		"type":      "source_done",
		"run_id":    runID,
		"source":    source,
		"seen":      seen,
		"inserted":  inserted,
		"duplicate": duplicate,
		"dropped":   dropped,
	})
}

// Summary sends the final counters of a run.
func (o *Output) Summary(runID string, counters map[string]int) {
	obj := map[string]interface{}{
		"type":   "summary",
		"run_id": runID,
	}
	for k, v := range counters {
		obj[k] = v
	}
	o.writeJSON(obj)
}

// writeJSON writes a JSON object followed by a newline.
func (o *Output) writeJSON(obj map[string]interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(obj)
	if err != nil {
		// Fallback to stderr if JSON marshaling fails
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintf(o.w, "%s\n", data)
}

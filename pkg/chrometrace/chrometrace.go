// Package chrometrace exports a call-tree forest as Chrome trace-event
// records, loadable in chrome://tracing and ui.perfetto.dev.
//
// The record shape is a compatibility contract with third-party viewers and
// must not drift: {"name", "cat", "ph", "ts", "pid", "tid"}, phases "B" and
// "E", timestamps in microseconds, written as a single JSON array.
package chrometrace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/papercomputeco/spool/pkg/calltree"
)

const (
	// PhaseBegin and PhaseEnd are the duration-event phases.
	PhaseBegin = "B"
	PhaseEnd   = "E"

	// danglingEndOffset is the synthetic gap given to a node that is
	// somehow still open at export time. Finalize should have closed
	// everything, but a viewer crash on a missing end record would be
	// worse than a 100µs lie.
	danglingEndOffset = 100 * time.Microsecond
)

// Event is one trace record.
type Event struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Phase string `json:"ph"`
	TS    int64  `json:"ts"`
	PID   int64  `json:"pid"`
	TID   int64  `json:"tid"`
}

// Exporter flattens forests into begin/end record pairs.
type Exporter struct {
	// Category is the category tag stamped on every record.
	Category string

	// PID is the fixed process identifier stamped on every record.
	PID int64
}

// Events returns the flat record sequence for the forest: a begin/end pair
// per node, children's pairs nested between their parent's begin and end.
func (e *Exporter) Events(forest calltree.Forest) []Event {
	events := make([]Event, 0, 2*forest.Size())
	for _, root := range forest {
		events = e.appendNode(events, root)
	}
	return events
}

// appendNode emits the node's begin record, recurses into children, then
// emits the end record; pre-order emission produces the nesting the viewer
// expects.
func (e *Exporter) appendNode(events []Event, node *calltree.Node) []Event {
	events = append(events, Event{
		Name:  node.Name,
		Cat:   e.Category,
		Phase: PhaseBegin,
		TS:    node.Start.UnixMicro(),
		PID:   e.PID,
		TID:   node.ThreadID,
	})

	for _, child := range node.Children {
		events = e.appendNode(events, child)
	}

	end := node.End
	if end.IsZero() {
		end = node.Start.Add(danglingEndOffset)
	}

	return append(events, Event{
		Name:  node.Name,
		Cat:   e.Category,
		Phase: PhaseEnd,
		TS:    end.UnixMicro(),
		PID:   e.PID,
		TID:   node.ThreadID,
	})
}

// Write serializes the forest's records as a single JSON array.
func (e *Exporter) Write(w io.Writer, forest calltree.Forest) error {
	if err := json.NewEncoder(w).Encode(e.Events(forest)); err != nil {
		return fmt.Errorf("encoding trace events: %w", err)
	}
	return nil
}

// WriteFile writes the trace file at path, replacing any previous run's output.
func (e *Exporter) WriteFile(path string, forest calltree.Forest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}

	if err := e.Write(f, forest); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing trace file: %w", err)
	}

	return nil
}

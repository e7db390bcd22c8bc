// Package classify matches free-text log messages against configured event
// definitions, tagging each match as the start or end of a named event.
package classify

import (
	"regexp"
	"time"
)

// Kind distinguishes start markers from end markers.
type Kind int

const (
	// Start tags a message that opens a new event.
	Start Kind = iota

	// End tags a message that closes the innermost open event of the
	// same name.
	End
)

// String returns "start" or "end" for logging.
func (k Kind) String() string {
	if k == Start {
		return "start"
	}
	return "end"
}

// Definition is one configured event: a name, start and end message
// predicates, and an optional slowness threshold for reporting.
type Definition struct {
	// Name identifies the event in reports and trace output.
	Name string

	// Start matches messages that open the event.
	Start *regexp.Regexp

	// End matches messages that close the event.
	End *regexp.Regexp

	// Threshold is the duration above which the event is flagged as
	// slow in the report. Zero means the event never warns.
	Threshold time.Duration
}

// Signal is a classified occurrence: which event, and whether the message
// marked its start or its end.
type Signal struct {
	Event string
	Kind  Kind
}

// Classifier matches messages against an ordered list of event definitions.
// It holds no mutable state and is safe to share.
type Classifier struct {
	defs []Definition

	// thresholds indexes definitions by name for report lookups.
	thresholds map[string]time.Duration
}

// NewClassifier creates a classifier over the given definitions.
// Definition order is significant: earlier definitions win when a message
// could satisfy more than one predicate.
func NewClassifier(defs []Definition) *Classifier {
	thresholds := make(map[string]time.Duration, len(defs))
	for _, d := range defs {
		if _, ok := thresholds[d.Name]; !ok {
			thresholds[d.Name] = d.Threshold
		}
	}

	return &Classifier{
		defs:       defs,
		thresholds: thresholds,
	}
}

// Classify returns the signal for the first definition whose start predicate
// matches the message; failing that, the first whose end predicate matches.
// At most one signal is returned per message. Returns ok=false when no
// predicate matches and the line should be ignored.
func (c *Classifier) Classify(message string) (Signal, bool) {
	for _, d := range c.defs {
		if d.Start.MatchString(message) {
			return Signal{Event: d.Name, Kind: Start}, true
		}
	}

	for _, d := range c.defs {
		if d.End.MatchString(message) {
			return Signal{Event: d.Name, Kind: End}, true
		}
	}

	return Signal{}, false
}

// Threshold returns the slowness threshold configured for the named event.
// ok is false when the event has no definition or no threshold.
func (c *Classifier) Threshold(name string) (time.Duration, bool) {
	t, ok := c.thresholds[name]
	if !ok || t == 0 {
		return 0, false
	}
	return t, true
}

// Definitions returns the configured definitions in order.
func (c *Classifier) Definitions() []Definition {
	return c.defs
}

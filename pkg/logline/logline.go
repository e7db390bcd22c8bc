// Package logline decodes raw log lines into the timing and threading fields
// the reconstruction engine consumes.
//
// A header pattern with named capture groups splits each line into an
// instant, thread identifiers, and the free-text message. Lines that do not
// match the header are not errors; log streams routinely carry noise the
// profiler has no business rejecting.
package logline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Capture group names the header pattern may define. GroupTime, GroupTID and
// GroupMessage are required; the rest are decoded when present and otherwise
// left at their zero values.
const (
	GroupTime    = "time"
	GroupUID     = "uid"
	GroupPID     = "pid"
	GroupTID     = "tid"
	GroupLevel   = "level"
	GroupTag     = "tag"
	GroupMessage = "msg"
)

// ErrNoMatch reports a line that does not match the header pattern.
// Callers skip such lines silently.
var ErrNoMatch = errors.New("line does not match header pattern")

// Line is one decoded log line.
type Line struct {
	At      time.Time
	UID     string
	PID     int64
	TID     int64
	Level   string
	Tag     string
	Message string
}

// Decoder splits raw lines with a header pattern and parses timestamps with
// a Go reference layout. Logcat-style layouts that omit the year get the
// decoder's construction-time year injected, matching how such logs are read
// in practice.
type Decoder struct {
	header *regexp.Regexp
	layout string
	groups map[string]int

	// year is prepended to parsed instants when the layout has no year
	// field of its own.
	year int
}

// NewDecoder creates a decoder from a compiled header pattern and a time
// layout. The pattern must define named groups for at least the instant,
// thread ID, and message.
func NewDecoder(header *regexp.Regexp, layout string) (*Decoder, error) {
	groups := make(map[string]int)
	for i, name := range header.SubexpNames() {
		if name != "" {
			groups[name] = i
		}
	}

	for _, required := range []string{GroupTime, GroupTID, GroupMessage} {
		if _, ok := groups[required]; !ok {
			return nil, fmt.Errorf("header pattern is missing required group (?P<%s>...)", required)
		}
	}

	return &Decoder{
		header: header,
		layout: layout,
		groups: groups,
		year:   time.Now().Year(),
	}, nil
}

// Decode splits one raw line. Returns ErrNoMatch for lines that do not look
// like log lines at all; other errors mean the line matched but carried
// fields the decoder could not parse.
func (d *Decoder) Decode(raw string) (Line, error) {
	m := d.header.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Line{}, ErrNoMatch
	}

	line := Line{
		UID:     d.group(m, GroupUID),
		Level:   d.group(m, GroupLevel),
		Tag:     d.group(m, GroupTag),
		Message: d.group(m, GroupMessage),
	}

	at, err := d.parseInstant(d.group(m, GroupTime))
	if err != nil {
		return Line{}, fmt.Errorf("parsing instant: %w", err)
	}
	line.At = at

	line.TID, err = parseID(d.group(m, GroupTID))
	if err != nil {
		return Line{}, fmt.Errorf("parsing thread id: %w", err)
	}

	if pid := d.group(m, GroupPID); pid != "" {
		line.PID, err = parseID(pid)
		if err != nil {
			return Line{}, fmt.Errorf("parsing process id: %w", err)
		}
	}

	return line, nil
}

// group returns the named capture's text, or "" when the pattern does not
// define it.
func (d *Decoder) group(match []string, name string) string {
	i, ok := d.groups[name]
	if !ok || i >= len(match) {
		return ""
	}
	return match[i]
}

func (d *Decoder) parseInstant(text string) (time.Time, error) {
	layout := d.layout
	if !strings.Contains(layout, "2006") {
		layout = "2006-" + layout
		text = fmt.Sprintf("%d-%s", d.year, text)
	}

	return time.Parse(layout, text)
}

func parseID(text string) (int64, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a numeric id: %w", text, err)
	}
	return id, nil
}

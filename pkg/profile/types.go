package profile

// Profile represents the persistent spool profile stored as profile.toml in
// the .spool/ directory. The TOML layout uses sections for logical grouping,
// with event definitions as an ordered array of tables; definition order is
// classification precedence.
type Profile struct {
	Version int           `toml:"version"`
	Log     LogConfig     `toml:"log"`
	Trace   TraceConfig   `toml:"trace"`
	Events  []EventConfig `toml:"events"`
}

// LogConfig describes how raw log lines decompose into fields.
type LogConfig struct {
	// HeaderPattern is a regular expression with named capture groups
	// (?P<time>...), (?P<tid>...), (?P<msg>...) plus optional uid, pid,
	// level and tag groups.
	HeaderPattern string `toml:"header_pattern,omitempty"`

	// TimeLayout is the Go reference layout for the time group. Layouts
	// without a year (logcat-style) get the current year injected.
	TimeLayout string `toml:"time_layout,omitempty"`
}

// TraceConfig holds trace-export settings.
type TraceConfig struct {
	// Category is the category tag stamped on every exported record.
	Category string `toml:"category,omitempty"`

	// PID is the fixed process identifier stamped on every exported
	// record. Log-derived trees have no meaningful process of their own.
	PID int64 `toml:"pid,omitempty"`

	// File is the default trace output path for spool analyze --trace.
	File string `toml:"file,omitempty"`
}

// EventConfig is one event definition: the start/end message patterns that
// bracket the event, and an optional slowness threshold for the report.
type EventConfig struct {
	Name        string `toml:"name"`
	StartRegex  string `toml:"start_regex"`
	EndRegex    string `toml:"end_regex"`
	ThresholdMS int64  `toml:"threshold_ms,omitempty"`
}

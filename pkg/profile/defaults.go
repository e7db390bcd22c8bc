package profile

const (
	// defaultHeaderPattern matches logcat threadtime output with UIDs:
	//   05-12 14:03:21.118  1000  1234  1234 I ActivityTaskManager: START u0 ...
	defaultHeaderPattern = `^(?P<time>\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s+` +
		`(?P<uid>\S+)\s+(?P<pid>\d+)\s+(?P<tid>\d+)\s+` +
		`(?P<level>[VDIWEF])\s+(?P<tag>.*?)\s*:\s(?P<msg>.*)$`

	// defaultTimeLayout is the logcat timestamp layout; it carries no
	// year, so the decoder injects the current one.
	defaultTimeLayout = "01-02 15:04:05.000"

	defaultTraceCategory = "PERF"
	defaultTracePID      = 1
	defaultTraceFile     = "trace_result.json"
)

// NewDefaultProfile returns a Profile with sane defaults for all fields
// except events, which every installation has to configure for itself.
// This is the single source of truth for default values.
func NewDefaultProfile() *Profile {
	return &Profile{
		Version: CurrentV,
		Log: LogConfig{
			HeaderPattern: defaultHeaderPattern,
			TimeLayout:    defaultTimeLayout,
		},
		Trace: TraceConfig{
			Category: defaultTraceCategory,
			PID:      defaultTracePID,
			File:     defaultTraceFile,
		},
	}
}

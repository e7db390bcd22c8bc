// Package analyze wires the pipeline together: decode each raw log line,
// classify its message, and feed the resulting signal to the reconstruction
// engine, in the order lines appear in the source. One Runner per run.
package analyze

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/papercomputeco/spool/pkg/calltree"
	"github.com/papercomputeco/spool/pkg/classify"
	"github.com/papercomputeco/spool/pkg/logger"
	"github.com/papercomputeco/spool/pkg/logline"
	"github.com/papercomputeco/spool/pkg/profile"
)

// maxLineBytes bounds a single log line; logcat lines are short but crash
// dumps pasted into logs are not.
const maxLineBytes = 1024 * 1024

// Stats summarizes what one run consumed and produced.
type Stats struct {
	// Lines is the count of raw lines read from the source.
	Lines int

	// Decoded is the count of lines that matched the header pattern
	// with parseable fields.
	Decoded int

	// Skipped is the count of lines that matched the header pattern but
	// carried fields the decoder could not parse.
	Skipped int

	// Starts and Ends count classified signals by kind.
	Starts int
	Ends   int

	// DiscardedEnds counts end signals dropped by the engine for want
	// of a matching top frame.
	DiscardedEnds int

	// ForcedClosures counts nodes closed with the zero-duration
	// fallback at end-of-stream.
	ForcedClosures int
}

// Result is the output of one run: the reconstructed forest plus run
// bookkeeping.
type Result struct {
	RunID  string
	Forest calltree.Forest
	Stats  Stats
}

// Runner drives one analysis run. It is strictly sequential: one line at a
// time, in source order. Feed it either a whole reader via Run, or line by
// line via ConsumeLine followed by Finish (the follow mode path).
type Runner struct {
	compiled *profile.Compiled
	engine   *calltree.Engine
	log      *slog.Logger
	runID    string
	stats    Stats
}

// NewRunner creates a runner over a compiled profile. A nil logger is
// replaced with a no-op one.
func NewRunner(compiled *profile.Compiled, log *slog.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}

	runID := uuid.NewString()

	return &Runner{
		compiled: compiled,
		engine:   calltree.NewEngine(),
		log:      log.With("run_id", runID),
		runID:    runID,
	}
}

// RunID returns this run's identifier, stamped on all of the runner's logs.
func (r *Runner) RunID() string {
	return r.runID
}

// ConsumeLine processes one raw log line. Lines that do not decode or do not
// classify are ignored; malformed log content is expected, not an error.
func (r *Runner) ConsumeLine(raw string) {
	r.stats.Lines++

	line, err := r.compiled.Decoder.Decode(raw)
	if err != nil {
		if err != logline.ErrNoMatch {
			r.stats.Skipped++
			r.log.Debug("skipping undecodable line", "line", r.stats.Lines, "error", err)
		}
		return
	}
	r.stats.Decoded++

	sig, ok := r.compiled.Classifier.Classify(line.Message)
	if !ok {
		return
	}

	switch sig.Kind {
	case classify.Start:
		r.stats.Starts++
	case classify.End:
		r.stats.Ends++
	}

	r.log.Debug("observed signal",
		"event", sig.Event,
		"kind", sig.Kind.String(),
		"tid", line.TID,
		"at", line.At,
	)

	r.engine.Observe(line.TID, line.At, sig)
}

// Finish closes any events still open and returns the run's result. Call
// exactly once, after the last line.
func (r *Runner) Finish() *Result {
	r.engine.Finalize()

	r.stats.DiscardedEnds = r.engine.DiscardedEnds()
	r.stats.ForcedClosures = r.engine.ForcedClosures()

	r.log.Info("run complete",
		"lines", r.stats.Lines,
		"decoded", r.stats.Decoded,
		"starts", r.stats.Starts,
		"ends", r.stats.Ends,
		"discarded_ends", r.stats.DiscardedEnds,
		"forced_closures", r.stats.ForcedClosures,
		"roots", len(r.engine.Forest()),
	)

	return &Result{
		RunID:  r.runID,
		Forest: r.engine.Forest(),
		Stats:  r.stats,
	}
}

// Run consumes every line of rd and returns the finished result.
func (r *Runner) Run(rd io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		r.ConsumeLine(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log source: %w", err)
	}

	return r.Finish(), nil
}

// RunFile consumes the log file at path and returns the finished result.
func (r *Runner) RunFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	r.log.Info("analyzing", "path", path)

	return r.Run(f)
}

// Package analyzecmder provides the analyze command: run the reconstruction
// pipeline over a log file and render the report and trace outputs.
package analyzecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/spool/pkg/analyze"
	"github.com/papercomputeco/spool/pkg/chrometrace"
	"github.com/papercomputeco/spool/pkg/logger"
	"github.com/papercomputeco/spool/pkg/profile"
	"github.com/papercomputeco/spool/pkg/report"
	"github.com/papercomputeco/spool/pkg/tail"
)

type analyzeCommander struct {
	logPath     string
	profilePath string
	tracePath   string
	noTrace     bool
	follow      bool
	logJSON     bool
	logFile     string
	configDir   string
	debug       bool

	viper *viper.Viper
	log   *slog.Logger
}

const analyzeLongDesc string = `Analyze an instrumented application log.

Reconstructs nested call trees from the start/end event markers configured
in the active profile, prints an indented timing report, and writes a
Chrome trace-event file for chrome://tracing or ui.perfetto.dev.

Event definitions come from profile.toml in the .spool/ directory
(see spool init), or from an explicit --profile path. Scalar settings can
be overridden with SPOOL_* environment variables or flags.

Examples:
  spool analyze app.log
  spool analyze app.log --trace startup.json
  spool analyze app.log --no-trace
  spool analyze app.log --follow
  spool analyze app.log --log-json --log-file run.log`

const analyzeShortDesc string = "Analyze a log file into call-tree timelines"

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{}

	cmd := &cobra.Command{
		Use:   "analyze <logfile>",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := profile.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading profile settings: %w", err)
			}

			// Connect --trace to the precedence chain
			// (flag > SPOOL_TRACE_FILE > profile.toml > default).
			if f := cmd.Flags().Lookup("trace"); f != nil {
				_ = v.BindPFlag("trace.file", f)
			}

			cmder.viper = v
			cmder.tracePath = v.GetString("trace.file")

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logPath = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.profilePath, "profile", "p", "", "Path to an explicit profile.toml")
	cmd.Flags().StringVarP(&cmder.tracePath, "trace", "t", "", "Trace output path (default from profile)")
	cmd.Flags().BoolVar(&cmder.noTrace, "no-trace", false, "Skip writing the trace file")
	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Follow the log as it grows; finalize on interrupt")
	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Emit logs as JSON instead of pretty output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *analyzeCommander) run(ctx context.Context) error {
	log, cleanup, err := c.buildLogger()
	if err != nil {
		return err
	}
	defer cleanup()
	c.log = log

	compiled, err := c.compileProfile()
	if err != nil {
		return err
	}

	runner := analyze.NewRunner(compiled, c.log)

	var result *analyze.Result
	if c.follow {
		result, err = c.followLog(ctx, runner)
	} else {
		result, err = runner.RunFile(c.logPath)
	}
	if err != nil {
		return err
	}

	if err := report.Render(os.Stdout, result.Forest, compiled.Classifier); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	c.printSummary(result)

	if c.noTrace {
		return nil
	}

	exporter := &chrometrace.Exporter{
		Category: compiled.Trace.Category,
		PID:      compiled.Trace.PID,
	}
	if err := exporter.WriteFile(c.tracePath, result.Forest); err != nil {
		return err
	}

	fmt.Printf("\nTrace exported to %s\n", c.tracePath)
	fmt.Println("Open chrome://tracing or ui.perfetto.dev and load the file.")

	return nil
}

// compileProfile loads the active profile, overlays viper-resolved scalar
// settings, and compiles its patterns. Any profile problem aborts the run
// before a single log line is read.
func (c *analyzeCommander) compileProfile() (*profile.Compiled, error) {
	var loader *profile.Loader
	var err error

	if c.profilePath != "" {
		loader = profile.NewFileLoader(c.profilePath)
	} else {
		loader, err = profile.NewLoader(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving profile: %w", err)
		}
	}

	prof, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	if c.viper != nil && c.profilePath == "" {
		profile.ApplyViper(c.viper, prof)
	}

	compiled, err := prof.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling profile: %w", err)
	}

	return compiled, nil
}

// followLog tails the file, feeding lines to the runner one at a time so
// the engine keeps its single total order. An interrupt stops the tail and
// finalizes whatever is open.
func (c *analyzeCommander) followLog(ctx context.Context, runner *analyze.Runner) (*analyze.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	follower := tail.NewFollower(c.logPath, c.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- follower.Run(ctx)
	}()

	c.log.Info("following log, interrupt to finalize", "path", c.logPath)

	for line := range follower.Lines() {
		runner.ConsumeLine(line)
	}

	if err := <-errCh; err != nil {
		return nil, err
	}

	return runner.Finish(), nil
}

func (c *analyzeCommander) printSummary(result *analyze.Result) {
	s := result.Stats
	fmt.Printf("\n%d roots from %d lines (%d start, %d end signals)\n",
		len(result.Forest), s.Lines, s.Starts, s.Ends)

	if s.DiscardedEnds > 0 || s.ForcedClosures > 0 {
		fmt.Printf("%d mismatched end signals discarded, %d events force-closed at end of stream\n",
			s.DiscardedEnds, s.ForcedClosures)
	}
}

// buildLogger assembles the run logger: pretty or JSON on stderr, plus an
// optional JSON log file via the multi handler.
func (c *analyzeCommander) buildLogger() (*slog.Logger, func(), error) {
	opts := []logger.Option{
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	}
	if c.logJSON {
		opts = append(opts, logger.WithJSON(true))
	} else {
		opts = append(opts, logger.WithPretty(true))
	}

	console := logger.New(opts...)

	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLogger := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)

	return logger.Multi(console, fileLogger), func() { _ = f.Close() }, nil
}

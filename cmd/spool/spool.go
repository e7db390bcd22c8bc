// Package spoolcmder
package spoolcmder

import (
	analyzecmder "github.com/papercomputeco/spool/cmd/spool/analyze"
	eventscmder "github.com/papercomputeco/spool/cmd/spool/events"
	initcmder "github.com/papercomputeco/spool/cmd/spool/init"
	versioncmder "github.com/papercomputeco/spool/cmd/spool/version"
	"github.com/spf13/cobra"
)

const spoolLongDesc string = `Spool rebuilds call-tree timelines from instrumented application logs.

Given a log stream with start/end markers for configured events, spool
reconstructs the nesting hierarchy per thread, reports per-event timing,
and exports a trace file loadable in chrome://tracing or ui.perfetto.dev.

Get started:
  spool init               Create a .spool/ directory with a starter profile
  spool analyze app.log    Analyze a log file
  spool events             List the configured event definitions`

const spoolShortDesc string = "Spool - call-tree timelines from logs"

func NewSpoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spool",
		Short: spoolShortDesc,
		Long:  spoolLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .spool/ directory location")

	// Add subcommands
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(eventscmder.NewEventsCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

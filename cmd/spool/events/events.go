// Package eventscmder provides the events command for inspecting the active
// profile's event definitions.
package eventscmder

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/spool/pkg/profile"
	"github.com/papercomputeco/spool/pkg/utils"
)

// maxPatternLen keeps very long regexes from wrapping the listing.
const maxPatternLen = 72

var (
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	patternStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	thresholdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const eventsLongDesc string = `List the event definitions in the active profile.

Definitions are shown in configuration order, which is also classification
precedence: when a message could match more than one pattern, the first
definition wins.

Examples:
  spool events
  spool events --profile ./profile.toml`

const eventsShortDesc string = "List configured event definitions"

func NewEventsCmd() *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "events",
		Short: eventsShortDesc,
		Long:  eventsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runEvents(configDir, profilePath)
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Path to an explicit profile.toml")

	return cmd
}

func runEvents(configDir, profilePath string) error {
	var loader *profile.Loader
	var err error

	if profilePath != "" {
		loader = profile.NewFileLoader(profilePath)
	} else {
		loader, err = profile.NewLoader(configDir)
		if err != nil {
			return fmt.Errorf("resolving profile: %w", err)
		}
	}

	prof, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	if len(prof.Events) == 0 {
		fmt.Println("No events configured. Add [[events]] entries to profile.toml (see spool init).")
		return nil
	}

	// Compile to surface broken patterns here rather than mid-analysis.
	if _, err := prof.Compile(); err != nil {
		return fmt.Errorf("profile does not compile: %w", err)
	}

	for i, evt := range prof.Events {
		fmt.Printf("%s %s", dimStyle.Render(fmt.Sprintf("#%d", i+1)), nameStyle.Render(evt.Name))
		if evt.ThresholdMS > 0 {
			fmt.Printf("  %s", thresholdStyle.Render(fmt.Sprintf("slow > %dms", evt.ThresholdMS)))
		}
		fmt.Println()

		fmt.Printf("   %s %s\n", dimStyle.Render("start:"), patternStyle.Render(utils.Truncate(evt.StartRegex, maxPatternLen)))
		fmt.Printf("   %s %s\n", dimStyle.Render("end:  "), patternStyle.Render(utils.Truncate(evt.EndRegex, maxPatternLen)))
	}

	return nil
}

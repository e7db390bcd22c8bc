// Package initcmder provides the init command for initializing a local
// .spool directory with a starter profile.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/spool/pkg/dotdir"
	"github.com/papercomputeco/spool/pkg/profile"
)

const initLongDesc string = `Initialize a new .spool/ directory in the current working directory.

Creates a local .spool/ directory with a starter profile.toml. The local
directory takes precedence over the default ~/.spool/ directory, so each
project can keep its own log patterns and event definitions.

Edit the [[events]] entries in profile.toml to match your application's
start/end log markers, then run spool analyze.

Examples:
  spool init`

const initShortDesc string = "Initialize a local .spool/ directory"

// starterProfile is written on init. The event entries are examples meant to
// be replaced; their shape documents the schema.
const starterProfile = `version = 0

[log]
# Named groups time, tid and msg are required; uid, pid, level and tag are
# decoded when present.
header_pattern = '^(?P<time>\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\s+(?P<uid>\S+)\s+(?P<pid>\d+)\s+(?P<tid>\d+)\s+(?P<level>[VDIWEF])\s+(?P<tag>.*?)\s*:\s(?P<msg>.*)$'
time_layout = "01-02 15:04:05.000"

[trace]
category = "PERF"
pid = 1
file = "trace_result.json"

# Event definitions, in classification precedence order.
[[events]]
name = "app_startup"
start_regex = 'Start proc.*for added application'
end_regex = 'Displayed .*MainActivity'
threshold_ms = 1000

[[events]]
name = "db_query"
start_regex = 'QueryBegin'
end_regex = 'QueryEnd'
threshold_ms = 50
`

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir, existed, err := dotdir.NewManager().Init(cwd)
	if err != nil {
		return err
	}

	if existed {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		fmt.Printf("Initialized .spool directory: %s\n", dir)
	}

	path := filepath.Join(dir, "profile.toml")
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Keeping existing profile: %s\n", path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking profile: %w", err)
	}

	// The starter must stay parseable; a broken template here would fail
	// every later command.
	if _, err := profile.ParseTOML([]byte(starterProfile)); err != nil {
		return fmt.Errorf("starter profile is invalid: %w", err)
	}

	if err := os.WriteFile(path, []byte(starterProfile), 0o600); err != nil {
		return fmt.Errorf("writing starter profile: %w", err)
	}

	fmt.Printf("Wrote starter profile: %s\n", path)
	fmt.Println("Edit the [[events]] entries to match your log markers, then run spool analyze.")

	return nil
}

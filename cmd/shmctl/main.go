// Command shmctl inspects and drives a process control region from outside
// the supervised processes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	c := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStatusCommand(c),
		createStopCommand(c),
		createResetCommand(c),
		createWaitCommand(c),
		createDumpCommand(c),
		createServeCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "shmctl",
		Short: "Inspect and control processes through a shared memory control region",
		Long: `shmctl reads and writes the process control region shared by a supervisor
and the server processes it manages.

Examples:
  shmctl status --dir=/opt/server
  shmctl stop 0 --dir=/opt/server --wait
  shmctl serve --file=/opt/server/temp/sharedmemory --slots=0,1,2`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to config file (optional)")
	pf.String("dir", "", "server base directory containing temp/sharedmemory")
	pf.String("file", "", "explicit path of the control region file (overrides --dir)")
	pf.Int("slot-size", 0, "bytes per slot")
	pf.Int("max-slots", 0, "number of slots")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")
	pf.String("log-file", "", "write logs to a rotated file")
	return root
}

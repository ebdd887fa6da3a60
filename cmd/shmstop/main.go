// Command shmstop asks a supervised server to stop by writing the stop command
// into slot 0 of <baseDir>/temp/sharedmemory. It prints nothing on success.
// A file larger than the region layout is refused rather than mapped in part.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srediag/shm-procctl/pkg/procctl"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shmstop <baseDir>",
		Short: "Request a graceful stop of the application process",
		Long: `shmstop maps <baseDir>/temp/sharedmemory and requests a stop of the
primary application process (slot 0). It does not wait for the process to exit.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestStop(cmd.Context(), args[0])
		},
	}
}

func requestStop(ctx context.Context, baseDir string) (err error) {
	r, err := procctl.OpenDir(ctx, baseDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return procctl.NewController(r).RequestStop(procctl.AppSlot)
}

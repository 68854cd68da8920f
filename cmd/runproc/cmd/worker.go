package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/psantana5/runproc/internal/worker"
	"github.com/psantana5/runproc/pkg/logging"
	"github.com/psantana5/runproc/pkg/outcome"
)

var (
	workerParentPID int
	workerFDRead    int
	workerFDWrite   int
)

// workerCmd is the child-process entry point. The supervisor spawns
// the binary with this subcommand and the channel file descriptors.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Internal: run as a worker child process",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		// The entry point turns the inherited descriptor numbers into
		// the two channel halves; everything below gets an explicit
		// Config, never ambient flags.
		cfg := worker.Config{
			ParentPID:  workerParentPID,
			FromParent: os.NewFile(uintptr(workerFDRead), "from-parent"),
			ToParent:   os.NewFile(uintptr(workerFDWrite), "to-parent"),
			Codec:      outcome.NewGobCodec(),
			Log:        logging.New(logging.ParseLevel(logLevel), jsonLogs),
		}
		os.Exit(worker.Run(cfg))
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerParentPID, "parent-pid", 0, "PID of the parent process")
	workerCmd.Flags().IntVar(&workerFDRead, "fd-read", 3, "file descriptor for reading data written by the parent")
	workerCmd.Flags().IntVar(&workerFDWrite, "fd-write", 4, "file descriptor for writing data read by the parent")
	workerCmd.MarkFlagRequired("parent-pid")

	rootCmd.AddCommand(workerCmd)
}

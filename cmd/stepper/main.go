package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sourcestep/interpreter-go/pkg/logging"
)

const cliToolVersion = "stepper 0.0.0-dev"

// exitError carries a process exit code through cobra without printing a
// second message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

type globalFlags struct {
	logLevel string
	color    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "stepper",
		Short:         "Step through, check and test programs in a small JavaScript subset",
		Version:       cliToolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			logger := logging.New(stderr, level, flags.color)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", slog.LevelWarn.String(), "log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&flags.color, "color", false, "colorize log output")

	root.AddCommand(
		newRunCmd(),
		newTraceCmd(),
		newCheckCmd(),
		newGraphCmd(),
		newConformCmd(),
	)
	return root
}

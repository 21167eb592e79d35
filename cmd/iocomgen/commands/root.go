// Package commands implements the iocomgen subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iocafe/iocomgen/internal/logging"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
	exitValidation   = 2
)

// Version is printed by "iocomgen --version".
var Version = "0.1.0"

// errValidation marks failures caused by the input files rather than by
// the command line; they exit with exitValidation.
var errValidation = errors.New("validation failed")

// env is shared by the subcommands of one invocation.
type env struct {
	stdout, stderr io.Writer
	verbose        bool
}

func (e *env) logger() *zap.Logger {
	return logging.New(e.stderr, e.verbose)
}

// addVerbose registers -v on commands that log. bin2c uses -v for the
// variable name instead.
func (e *env) addVerbose(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&e.verbose, "verbose", "v", false, "Verbose logging")
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	e := &env{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "iocomgen",
		Short:         "Generate iocom C code from JSON signal and parameter maps",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newSignalsCommand(e),
		newParametersCommand(e),
		newPrm2SigCommand(e),
		newMergeCommand(e),
		newJSONCommand(e),
		newBin2CCommand(e),
		newLayoutCommand(e),
		newValidateCommand(e),
		newBuildCommand(e),
	)
	return root
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errValidation) {
			return exitValidation
		}
		return exitCommandError
	}
	return exitSuccess
}

// invalid wraps an input error so that it exits with exitValidation.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", errValidation, err)
}

// outputBase returns the -o value or, without one, the first source.
func outputBase(out string, sources []string) string {
	if out != "" {
		return out
	}
	return sources[0]
}

// Command intcode runs, calibrates, disassembles and serves intcode
// programs.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/derwiath/adventofcode-2019/manifest"
)

var log = commonlog.GetLogger("intcode.cli")

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

// exitCodeError carries a specific process exit code. A nil err means
// the command already reported the outcome.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

// app holds state shared by every subcommand.
type app struct {
	verbose   int
	configDir string
	manifest  *manifest.Manifest
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", ec.err)
		}
		return ec.code
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	return exitError
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "intcode",
		Short: "Run and calibrate intcode programs",
		Long: `intcode executes intcode memory images (opcodes 1 add, 2 multiply,
99 halt) and searches the noun/verb parameter space for a target output.

Configuration is read from intcode.toml in the current directory or the
nearest parent, or from the directory given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&a.configDir, "config", "", "Directory containing intcode.toml")

	rootCmd.AddCommand(
		newRunCmd(a),
		newCalibrateCmd(a),
		newDisasmCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// setup configures logging and loads the manifest.
func (a *app) setup() error {
	commonlog.Configure(a.verbose, nil)

	var (
		m   *manifest.Manifest
		err error
	)
	if a.configDir != "" {
		m, err = manifest.Load(a.configDir)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if m == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		m = manifest.Default(cwd)
	} else {
		log.Debug("manifest loaded", "dir", m.Dir)
	}
	a.manifest = m
	return nil
}

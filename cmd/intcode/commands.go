package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derwiath/adventofcode-2019/calibrate"
	"github.com/derwiath/adventofcode-2019/pkg/intcode"
	"github.com/derwiath/adventofcode-2019/server"
	"github.com/derwiath/adventofcode-2019/store"
)

// loadProgram reads the image named on the command line, falling back to
// program.path from the manifest.
func (a *app) loadProgram(args []string) (intcode.Memory, error) {
	path := a.manifest.ProgramPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, errors.New("no program: pass FILE or set program.path in intcode.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	mem, err := intcode.ParseMemory(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("program loaded", "path", path, "words", len(mem))
	return mem, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(a *app) *cobra.Command {
	var (
		noun, verb uint64
		strict     bool
		dump       bool
		trace      bool
	)

	cmd := &cobra.Command{
		Use:   "run [FILE]",
		Short: "Run a program and print the value at address 0",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, err := a.loadProgram(args)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("noun") || flags.Changed("verb") {
				if len(mem) <= calibrate.VerbAddress {
					return calibrate.ErrImageTooShort
				}
				if flags.Changed("noun") {
					mem[calibrate.NounAddress] = noun
				}
				if flags.Changed("verb") {
					mem[calibrate.VerbAddress] = verb
				}
			}

			var opts []intcode.Option
			if strict || a.manifest.Machine.StrictEnd {
				opts = append(opts, intcode.WithStrictEnd())
			}
			if trace {
				errOut := cmd.ErrOrStderr()
				opts = append(opts, intcode.WithTrace(func(ip int, in intcode.Instruction) {
					fmt.Fprintf(errOut, "%04d  %s\n", ip, in)
				}))
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			m := intcode.NewMachine(mem, opts...)
			if err := m.Run(ctx); err != nil {
				return err
			}
			log.Info("halted", "steps", m.Steps(), "ip", m.IP())

			out := cmd.OutOrStdout()
			if dump {
				fmt.Fprintln(out, mem.String())
			} else {
				fmt.Fprintln(out, mem[0])
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&noun, "noun", 0, "Value written to address 1 before the run")
	cmd.Flags().Uint64Var(&verb, "verb", 0, "Value written to address 2 before the run")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fault when execution runs off the end of memory")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the whole final memory image")
	cmd.Flags().BoolVar(&trace, "trace", false, "Write each executed instruction to stderr")
	return cmd
}

func newCalibrateCmd(a *app) *cobra.Command {
	var (
		target           uint64
		nounMin, nounMax uint64
		verbMin, verbMax uint64
		workers          int
		strict           bool
		noCache          bool
		storePath        string
	)

	cmd := &cobra.Command{
		Use:   "calibrate [FILE]",
		Short: "Find the noun and verb that produce a target value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, err := a.loadProgram(args)
			if err != nil {
				return err
			}

			m := a.manifest
			flags := cmd.Flags()

			q := store.Search{
				Noun:      *m.Calibration.Noun,
				Verb:      *m.Calibration.Verb,
				Workers:   m.Calibration.Workers,
				StrictEnd: strict || m.Machine.StrictEnd,
			}
			switch {
			case flags.Changed("target"):
				q.Target = target
			case m.Calibration.Target != nil:
				q.Target = *m.Calibration.Target
			default:
				return errors.New("no target: pass --target or set calibration.target in intcode.toml")
			}
			if flags.Changed("noun-min") {
				q.Noun.Min = nounMin
			}
			if flags.Changed("noun-max") {
				q.Noun.Max = nounMax
			}
			if flags.Changed("verb-min") {
				q.Verb.Min = verbMin
			}
			if flags.Changed("verb-max") {
				q.Verb.Max = verbMax
			}
			if flags.Changed("workers") {
				q.Workers = workers
			}

			var st *store.Store
			if !noCache && !m.Store.Disabled {
				path := m.StorePath()
				if storePath != "" {
					path = storePath
				}
				st, err = store.Open(path)
				if err != nil {
					return err
				}
				defer st.Close()
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, cached, err := st.Calibrate(ctx, mem, q)
			out := cmd.OutOrStdout()
			var nf *calibrate.NotFoundError
			switch {
			case err == nil:
				log.Info("calibrated", "trials", res.Trials, "faults", res.Faults, "cached", cached)
				fmt.Fprintf(out, "%s answer=%d\n", res.Pair, res.Answer())
				return nil
			case errors.As(err, &nf) && nf.AllFaulted():
				log.Info("every trial faulted", "trials", nf.Trials, "cached", cached)
				fault := nf.FirstFault
				if fault == nil {
					fault = nf
				}
				return &exitCodeError{code: exitError, err: fmt.Errorf("every trial faulted: %w", fault)}
			case nf != nil:
				log.Info("exhausted", "trials", nf.Trials, "faults", nf.Faults, "cached", cached)
				fmt.Fprintln(out, "no solution in searched domain")
				return &exitCodeError{code: exitNotFound}
			default:
				return err
			}
		},
	}

	cmd.Flags().Uint64Var(&target, "target", 0, "Value address 0 must hold after the run")
	cmd.Flags().Uint64Var(&nounMin, "noun-min", 0, "Lowest noun to try")
	cmd.Flags().Uint64Var(&nounMax, "noun-max", 99, "Highest noun to try")
	cmd.Flags().Uint64Var(&verbMin, "verb-min", 0, "Lowest verb to try")
	cmd.Flags().Uint64Var(&verbMax, "verb-max", 99, "Highest verb to try")
	cmd.Flags().IntVar(&workers, "workers", 1, "Parallel search goroutines")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fault when execution runs off the end of memory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the results store")
	cmd.Flags().StringVar(&storePath, "store", "", "Results database (default from intcode.toml)")
	return cmd
}

func newDisasmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [FILE]",
		Short: "Print a listing of a program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, err := a.loadProgram(args)
			if err != nil {
				return err
			}
			name := a.manifest.Program.Path
			if len(args) > 0 {
				name = args[0]
			}
			fmt.Fprint(cmd.OutOrStdout(), intcode.DisassembleWithName(mem, name))
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the machine over Connect (HTTP/JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []server.ServerOption
			if !noCache && !a.manifest.Store.Disabled {
				st, err := store.Open(a.manifest.StorePath())
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, server.WithStore(st))
			}
			if w := a.manifest.Calibration.Workers; w > 1 {
				opts = append(opts, server.WithMaxSearchWorkers(w))
			}

			srv := server.New(opts...)
			defer srv.Stop()

			ctx, cancel := signalContext(cmd)
			defer cancel()
			go func() {
				<-ctx.Done()
				srv.Stop()
			}()

			return srv.ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":4568", "Listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Serve without the results store")
	return cmd
}

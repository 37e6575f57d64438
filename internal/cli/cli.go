package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/insituflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// options are the flags shared by every subcommand.
type options struct {
	cfg    app.Config
	format string
}

// NewRootCommand builds the command tree. Reports and command output go
// to outW; logs and errors go to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &options{cfg: app.DefaultConfig()}

	root := &cobra.Command{
		Use:   "insituflow",
		Short: "Compile declarative visualization actions into a filter graph and run it",
		Long: `insituflow reads an action file (YAML, JSON or HCL) describing pipelines,
extracts and scenes, compiles it into a dependency graph and executes it
against a synthetic braid mesh, one pass per timestep.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfg.LogFormat, "log-format", opts.cfg.LogFormat, "Log output format: 'text', 'json' or 'auto'.")
	pf.StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.IntVar(&opts.cfg.Workers, "workers", opts.cfg.Workers, "Number of filters that may run at once.")
	pf.StringVar(&opts.cfg.OutputDir, "output-dir", opts.cfg.OutputDir, "Base directory for extract files and images.")

	root.AddCommand(newRunCommand(opts, outW, errW), newValidateCommand(opts, outW, errW), newGraphCommand(opts, outW, errW))
	return root
}

// newApp validates the collected flags and builds the app.
func (o *options) newApp(args []string, outW, errW io.Writer) (*app.App, error) {
	o.cfg.ActionPath = args[0]
	o.cfg.LogFormat = strings.ToLower(o.cfg.LogFormat)
	o.cfg.LogLevel = strings.ToLower(o.cfg.LogLevel)
	cfg, err := app.NewConfig(o.cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI configuration validated.", "config", cfg)
	return app.NewApp(outW, errW, cfg), nil
}

func newRunCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run ACTION_PATH",
		Short: "Execute the actions for a number of timesteps",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			err = a.Run(cmd.Context())
			if errors.Is(err, app.ErrPassFailed) {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.cfg.Steps, "steps", opts.cfg.Steps, "Number of timesteps to run.")
	f.IntVar(&opts.cfg.MeshDims, "mesh-dims", opts.cfg.MeshDims, "Points per axis of the synthetic mesh.")
	f.IntVar(&opts.cfg.CacheSize, "cache-size", opts.cfg.CacheSize, "Memoize up to this many step results across passes. 0 is disabled.")
	f.IntVar(&opts.cfg.HealthcheckPort, "healthcheck-port", opts.cfg.HealthcheckPort, "Port for the /health and /metrics server. 0 is disabled.")
	f.BoolVar(&opts.cfg.Watch, "watch", opts.cfg.Watch, "Reload the action file between passes when it changes.")
	f.BoolVar(&opts.cfg.Strict, "strict", opts.cfg.Strict, "Exit with status 1 when any pass reports errors.")
	return cmd
}

func newValidateCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate ACTION_PATH",
		Short: "Report every problem in the action file without executing it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			diags, err := a.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if len(diags) > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d problem(s) found", len(diags))}
			}
			return nil
		},
	}
}

func newGraphCommand(opts *options, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph ACTION_PATH",
		Short: "Print the compiled execution graph",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case "dot", "json":
			default:
				return &ExitError{Code: 2, Message: "invalid format: must be 'dot' or 'json'"}
			}
			a, err := opts.newApp(args, outW, errW)
			if err != nil {
				return err
			}
			return a.Graph(cmd.Context(), opts.format)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "dot", "Output format: 'dot' or 'json'.")
	return cmd
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// Execute runs the command line in args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return err
}

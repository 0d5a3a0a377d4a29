package cli

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/envbuild/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		config *app.Config
		opts   app.Config
	)

	rootCmd := &cobra.Command{
		Use:   "envbuild",
		Short: "Resolve build flags and library dependencies, then compile each environment",
		Long: `envbuild reads envbuild.hcl from a project directory, computes the compiler
and linker flags of every environment, finds the libraries the sources include
and compiles the result with the environment's toolchain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [PROJECT_DIR]",
		Short: "Build the selected environments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("project-dir") {
					return errors.New("project dir given both as argument and --project-dir")
				}
				opts.ProjectDir = args[0]
			}
			opts.LogFormat = strings.ToLower(opts.LogFormat)
			if opts.LogFormat != "text" && opts.LogFormat != "json" {
				return errors.New("invalid log-format: must be 'text' or 'json'")
			}
			opts.LogLevel = strings.ToLower(opts.LogLevel)
			switch opts.LogLevel {
			case "debug", "info", "warn", "error":
				// valid
			default:
				return errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
			}
			if opts.Verbose {
				opts.LogLevel = "debug"
			}
			cfg, err := app.NewConfig(opts)
			if err != nil {
				return err
			}
			config = cfg
			return nil
		},
	}
	f := runCmd.Flags()
	f.StringVarP(&opts.ProjectDir, "project-dir", "d", ".", "Project directory containing envbuild.hcl.")
	f.StringArrayVarP(&opts.Environments, "environment", "e", nil, "Environment to build. Repeatable; defaults to default_envs.")
	f.IntVarP(&opts.Jobs, "jobs", "j", 0, "Number of parallel compile jobs. 0 uses one per CPU.")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Shorthand for --log-level=debug.")
	f.StringVar(&opts.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&opts.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&opts.CacheDir, "cache-dir", "", "Directory of the dependency graph cache. Defaults to the XDG cache dir.")
	f.BoolVar(&opts.NoCache, "no-cache", false, "Resolve dependencies without reading or writing the graph cache.")
	f.BoolVar(&opts.Watch, "watch", false, "Rebuild whenever project files change.")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Print the command transcript without invoking the toolchain.")
	rootCmd.AddCommand(runCmd)

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(output)
	rootCmd.SetErr(output)
	if err := rootCmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if config == nil {
		// Help was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

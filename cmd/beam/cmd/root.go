// Package cmd provides the CLI commands for beam.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beamlauncher/beam/internal/app"
	"github.com/beamlauncher/beam/internal/config"
	"github.com/beamlauncher/beam/internal/gateway"
	"github.com/beamlauncher/beam/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the beam CLI.
func NewRootCmd() *cobra.Command {
	var configPath string
	var pluginDirs []string
	var plain bool

	cmd := &cobra.Command{
		Use:   "beam [show|hide|toggle]",
		Short: "Universal desktop search",
		Long: `Beam is a keyboard-driven universal search launcher.

Run 'beam' to start an instance. While one is running, a second
invocation with a command controls its visibility:

  beam show     make the running instance visible
  beam hide     hide the running instance
  beam toggle   flip visibility`,
		Version:       Version,
		Args:          cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     []string{gateway.CommandShow, gateway.CommandHide, gateway.CommandToggle},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, pluginDirs)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			if len(args) == 1 {
				return runCommand(cmd, cfg, args[0])
			}
			return runInstance(cmd, cfg, plain)
		},
	}

	cmd.SetVersionTemplate("beam version {{.Version}}\n")

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringSliceVar(&pluginDirs, "plugin-dirs", nil, "Override provider plugin directories")
	cmd.Flags().BoolVar(&plain, "plain", false, "Run without the interactive terminal UI")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.beam/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig(path string, pluginDirs []string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(pluginDirs) > 0 {
		cfg.Paths.PluginDirs = pluginDirs
	}
	return cfg, nil
}

// runCommand is the secondary-instance path: deliver one visibility
// command to the running instance and report its reply.
func runCommand(cmd *cobra.Command, cfg *config.Config, command string) error {
	client := gateway.NewClient(cfg.SocketPath(),
		cfg.Gateway.DialTimeout, cfg.Gateway.ReplyTimeout)

	reply, err := client.Send(command)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "There is no other instance of beam running.")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply)
	if reply == gateway.ReplyUnsupported {
		return errors.New("command not supported")
	}
	return nil
}

// runInstance is the primary path: acquire the instance lock and run
// until a termination signal or the user quits.
func runInstance(cmd *cobra.Command, cfg *config.Config, plain bool) error {
	// The config file's log level applies unless --debug already won.
	if !debugMode && cfg.Logging.Level != "" {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Logging.Level
		cleanup, err := logging.SetupDefault(logCfg)
		if err == nil {
			stopLogging(nil, nil)
			loggingCleanup = cleanup
		}
	}

	a, err := app.New(cfg, app.Options{ForcePlain: plain})
	if err != nil {
		if errors.Is(err, app.ErrAlreadyRunning) {
			// Not a failure: launching while an instance runs is how the
			// user pings it. Only a command with no receiver exits nonzero.
			fmt.Fprintln(cmd.OutOrStdout(), "There is another instance of beam running.")
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	slog.Info("Instance starting",
		slog.String("version", Version),
		slog.String("cache_dir", cfg.Paths.CacheDir))

	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// startLogging configures slog before any command runs.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the beam version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "beam version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

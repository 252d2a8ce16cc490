package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
	bind       string
	port       int
	url        string
}

func (o *options) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return defaultConfigPath()
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "system-stats-agent",
		Short:         "Serve CPU, memory and temperature snapshots of this host",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default ~/.system-stats/agent.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.Flags().StringVar(&opts.bind, "bind", "", "Override bind address (e.g. 0.0.0.0)")
	root.Flags().IntVar(&opts.port, "port", 0, "Override port")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/system and /ws/system (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.bind, "bind", "", "Override bind address (e.g. 0.0.0.0)")
	serveCmd.Flags().IntVar(&opts.port, "port", 0, "Override port")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Sample the host once and print the snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll an agent and print each snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	watchCmd.Flags().StringVar(&opts.url, "url", "", "Snapshot URL (default http://<bind>:<port>/api/system from config)")

	root.AddCommand(serveCmd, snapshotCmd, watchCmd)
	return root
}

type agent struct {
	config    *Config
	level     *slog.LevelVar
	logger    *slog.Logger
	assembler *Assembler
}

// loadAgentConfig applies flag overrides on top of the config file.
func loadAgentConfig(opts *options) (*Config, error) {
	config, err := loadConfig(opts.path())
	if err != nil {
		return nil, err
	}
	if opts.bind != "" {
		config.Bind = opts.bind
	}
	if opts.port != 0 {
		config.Port = opts.port
	}
	if opts.logLevel != "" {
		config.LogLevel = opts.logLevel
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newAgent(ctx context.Context, opts *options) (*agent, error) {
	config, err := loadAgentConfig(opts)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	l, _ := parseLogLevel(config.LogLevel)
	level.Set(l)
	logger := newLogger(os.Stderr, level)

	identity, err := detectIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("detecting host identity: %w", err)
	}

	runner := newExecRunner(config.Temperature.CommandTimeout)
	assembler := newAssembler(
		staticIdentity(identity),
		newCPUProbe(newCounterReader(runtime.GOOS), hostCoreCount(ctx), logger),
		newMemoryProbe(hostMemory{}),
		newTemperatureProbe(runtime.GOOS, config.Temperature, runner, logger),
		config.AssemblyTimeout,
		logger,
	)

	return &agent{config: config, level: level, logger: logger, assembler: assembler}, nil
}

func runServe(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAgent(ctx, opts)
	if err != nil {
		return err
	}
	srv := newServer(a.assembler, a.config, a.logger)

	go func() {
		if err := watchConfig(ctx, opts.path(), a.logger, applyReload(a, srv, opts)); err != nil {
			a.logger.Warn("config hot reload disabled", "error", err)
		}
	}()

	listener, err := net.Listen("tcp", a.config.ListenAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.config.ListenAddr(), err)
	}

	a.logger.Info("system-stats-agent listening", "version", version, "addr", listener.Addr().String())
	if a.config.Token == "" {
		a.logger.Warn("no auth token configured")
	}
	return serveUntilDone(ctx, listener, srv.Handler(), a.logger)
}

// serveUntilDone serves on listener until ctx is done, then waits up to five
// seconds for in-flight requests to finish.
func serveUntilDone(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	// Serve returns as soon as Shutdown starts; in-flight requests drain here.
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// applyReload returns the hot-reload hook. Only the token and, unless
// --log-level pinned it, the log level take effect without a restart.
func applyReload(a *agent, srv *Server, opts *options) func(*Config) {
	return func(config *Config) {
		if opts.logLevel == "" {
			l, _ := parseLogLevel(config.LogLevel)
			a.level.Set(l)
		}
		srv.SetToken(config.Token)
		a.logger.Info("config reloaded; bind, port, intervals and temperature settings apply on restart", "path", opts.path())
	}
}

func runSnapshot(ctx context.Context, opts *options, out io.Writer) error {
	a, err := newAgent(ctx, opts)
	if err != nil {
		return err
	}
	return writeSnapshot(ctx, a.assembler, a.logger, out)
}

// writeSnapshot prints one snapshot as indented JSON. On failure it prints
// the fixed error body and returns an error so the process exits 1.
func writeSnapshot(ctx context.Context, assembler Snapshotter, logger *slog.Logger, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	snapshot, err := assembler.Assemble(ctx)
	if err != nil {
		logger.Error("assembling snapshot", "error", err)
		enc.Encode(ErrorResponse{Error: snapshotErrorMessage})
		return errors.New(snapshotErrorMessage)
	}
	return enc.Encode(newSystemResponse(snapshot))
}

func runWatch(ctx context.Context, opts *options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadAgentConfig(opts)
	if err != nil {
		return err
	}
	level := new(slog.LevelVar)
	l, _ := parseLogLevel(config.LogLevel)
	level.Set(l)

	url := opts.url
	if url == "" {
		url = "http://" + config.ListenAddr() + "/api/system"
	}
	return newPollClient(url, config.Token, config.PollInterval, out, newLogger(os.Stderr, level)).Run(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dingd/internal/bootstrap"
	"dingd/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dingd:", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string
	workers    int
	brokers    string
	recipients string
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	root := &cobra.Command{
		Use:           "dingd",
		Short:         "DingTalk robot and mini-app callback dispatcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", os.Getenv("DINGD_CONFIG"), "Config file (.yaml, .json or .toml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP callbacks and Stream Mode connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	serve.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address, e.g. :8080")
	serve.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	serve.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: console|json")
	serve.Flags().IntVar(&f.workers, "workers", 0, "Mini-app worker pool size")
	serve.Flags().StringVar(&f.brokers, "audit-brokers", "", "Comma-separated Kafka brokers for the audit trail")
	serve.Flags().StringVar(&f.recipients, "notify-recipients", "", "Comma-separated staff IDs notified of mini-app events")

	handlersCmd := &cobra.Command{
		Use:   "handlers",
		Short: "Print the registered handlers in registration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			cfg.Gateway.Mode = config.GatewayLog
			cfg.Dedup.Backend = config.DedupOff
			cfg.Audit.Brokers = nil
			c, err := bootstrap.Build(cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer c.Close(context.Background())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "chat handlers:")
			for i, d := range c.Registry.All() {
				kind := "predicate"
				if d.Fallback() {
					kind = "fallback"
				}
				fmt.Fprintf(out, "  %d. %-12s priority=%d %s\n", i+1, d.Name, d.Priority, kind)
			}
			fmt.Fprintln(out, "mini-app handlers:")
			for i, h := range c.Executor.Handlers() {
				fmt.Fprintf(out, "  %d. %-12s level=%d\n", i+1, h.Name(), h.Level())
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dingd", version)
		},
	}

	root.AddCommand(serve, handlersCmd, versionCmd)
	return root
}

// loadConfig reads the file (if any), overlays DINGD_* variables and then
// explicitly set flags.
func loadConfig(cmd *cobra.Command, f *cliFlags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = f.addr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if flags.Changed("workers") {
		cfg.WorkerPoolSize = f.workers
	}
	if flags.Changed("audit-brokers") {
		cfg.Audit.Brokers = splitCSV(f.brokers)
	}
	if flags.Changed("notify-recipients") {
		cfg.Notify.Recipients = splitCSV(f.recipients)
	}
	config.Defaults(&cfg)
	return cfg, nil
}

func serve(cfg config.Config) error {
	logger := bootstrap.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.Build(cfg, bootstrap.Options{Logger: &logger, BaseContext: baseCtx})
	if err != nil {
		return err
	}
	if err := c.StartStream(baseCtx); err != nil {
		_ = c.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Int("apps", len(c.Apps)).Int("workers", cfg.WorkerPoolSize).Msg("dingd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	select {
	case <-baseCtx.Done():
	case err := <-errc:
		if err != nil {
			_ = c.Close(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := c.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("drain error")
	}
	logger.Info().Msg("dingd stopped")
	return nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Wallet-watcher: follows one ledger address, detects token balance changes in its new
// transactions and emits them as trade events. Exposes /healthz and /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/checkpoint"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/poller"
)

type rootOptions struct {
	envFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("wallet-watcher", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "wallet-watcher",
		Short:         "Follow a ledger address and emit its trades",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load environment from this file first")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCheckpointCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the address until SIGINT/SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.envFile)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runWatcher(ctx, cfg, logger)
		},
	}
}

func runWatcher(ctx context.Context, cfg Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()
	snk, closeSink, err := newSink(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeSink()

	p := poller.New(poller.Config{
		Address:       cfg.Address,
		PollInterval:  cfg.PollInterval,
		PageLimit:     cfg.PageLimit,
		CacheSize:     cfg.CacheSize,
		MaxConcurrent: cfg.MaxConcurrent,
		FetchTimeout:  cfg.FetchTimeout,
	}, src, store, snk, logger)

	healthWindow := max(5*cfg.PollInterval, time.Minute)
	srv := newOpsServer(listenAddr(cfg.Port), func() bool { return p.Healthy(healthWindow) })
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			cancel() // trigger shutdown so run can exit
		}
	}()
	logger.Info("starting", "addr", srv.Addr, "address", cfg.Address, "rpc", cfg.RPCURL,
		"checkpoint", cfg.CheckpointBackend, "sink", cfg.Sink)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller stopped", "err", err)
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	return nil
}

func newCheckpointCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or clear the stored checkpoint",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, cfg Config, store checkpoint.Store) error {
				cp, err := store.Load(ctx)
				if err != nil {
					return err
				}
				if cp.IsZero() {
					fmt.Fprintf(cmd.OutOrStdout(), "no checkpoint for %s\n", cfg.Address)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s slot=%d\n", cp.Signature, cp.Slot)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the stored checkpoint; the next run starts from the most recent page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, cfg Config, store checkpoint.Store) error {
				if err := store.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checkpoint for %s cleared\n", cfg.Address)
				return nil
			})
		},
	})
	return cmd
}

func withStore(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, cfg Config, store checkpoint.Store) error) error {
	cfg, err := loadConfig(opts.envFile)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()
	return fn(ctx, cfg, store)
}

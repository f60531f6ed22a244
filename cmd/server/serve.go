package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"gowicpbridge/ICPRPC"
	"gowicpbridge/SUIRPC"
	"gowicpbridge/config"
	"gowicpbridge/events"
	"gowicpbridge/lifecycle"
	"gowicpbridge/logger"
	"gowicpbridge/reconciler"
	"gowicpbridge/redis"
	"gowicpbridge/workers"
	"gowicpbridge/workers/handlers"
)

type operationStore interface {
	lifecycle.Store
	handlers.OperationStore
	workers.OperationStore
}

func newServeCmd() *cobra.Command {
	var configPath, logDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, logDir)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "yaml config file, empty to use the environment only")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "write logs to a daily file in this directory instead of stdout")
	return cmd
}

func openLogFile(dir string) (*os.File, error) {
	name := filepath.Join(dir, fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o640)
	return f, errors.Wrap(err, "error opening log file for writing")
}

func serve(ctx context.Context, configPath, logDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if logDir != "" {
		f, err := openLogFile(logDir)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger.Init(cfg.Logger, out)
	logger.Info("starting wICP bridge", "network", cfg.Sui.Network, "package", cfg.Sui.PackageID, "endpoints", len(cfg.Sui.RPCList))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store operationStore
	var health handlers.Pinger
	if cfg.Server.RedisHost != "" {
		rs := redis.New(cfg.Server.RedisHost, cfg.Server.RedisPort)
		defer rs.Close()
		// without persistence the nonce counter could repeat, do not continue
		if err := rs.Ping(ctx); err != nil {
			return err
		}
		store, health = rs, rs
	} else {
		logger.Warn("no redis configured, operation records and burn nonces are kept in memory")
		store = lifecycle.NewMemoryStore()
	}

	if n, err := workers.Worker_markInterrupted(store, time.Now().Unix()); err != nil {
		logger.Warn("cannot check for interrupted operations", logger.Err(err))
	} else if n > 0 {
		logger.Warn("operations were interrupted by the last shutdown", "count", n)
	}

	ledger := ICPRPC.New(cfg.Ledger.URL, cfg.Ledger.Timeout)
	rec := reconciler.New(reconciler.Config{SettleDelay: cfg.Bridge.BurnSettleDelay})
	defer rec.Close()

	session := lifecycle.NewSession(lifecycle.SettingsFrom(cfg), lifecycle.Deps{
		Connect:    func(principal string) lifecycle.Ledger { return ledger.As(principal) },
		Chain:      SUIRPC.New(cfg.Sui.RPCList, cfg.Sui.RequestTimeout),
		Store:      store,
		Reconciler: rec,
	})
	defer session.Wait()

	var wg sync.WaitGroup
	defer wg.Wait()

	sub := session.Bus().Subscribe(events.SubscriptionBufferSize)
	wg.Add(2)
	go func() {
		defer wg.Done()
		workers.Worker_reconcile(ctx, rec, sub)
	}()
	go func() {
		defer wg.Done()
		workers.Worker_refresh(ctx, rec, cfg.Bridge.RefreshInterval)
	}()

	if cfg.Ledger.Principal != "" {
		if _, err := session.EstablishIdentity(ctx, cfg.Ledger.Principal); err != nil {
			// POST /identity can still establish it later
			logger.Error("cannot establish configured identity", err, "principal", cfg.Ledger.Principal)
		}
	}

	api := &handlers.API{Session: session, Reconciler: rec, Operations: store}
	if health != nil {
		api.Health = health
	}
	err = workers.Worker_HTTP(ctx, cfg, workers.NewRouter(api))
	stop()
	return err
}

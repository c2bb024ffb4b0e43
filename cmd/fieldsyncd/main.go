// Command fieldsyncd runs the offline sync core as a local daemon: it
// owns the durable pending queues, watches reachability, replays queued
// mutations against the remote service, and exposes a control API for
// the presentation layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/api"
	"github.com/ruteroapp/fieldsync/internal/config"
	"github.com/ruteroapp/fieldsync/internal/logging"
	"github.com/ruteroapp/fieldsync/internal/queue"
	"github.com/ruteroapp/fieldsync/internal/reachability"
	"github.com/ruteroapp/fieldsync/internal/recording"
	"github.com/ruteroapp/fieldsync/internal/remote"
	"github.com/ruteroapp/fieldsync/internal/store"
	"github.com/ruteroapp/fieldsync/internal/syncer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Log.Info("starting fieldsync daemon")

	kv, err := store.OpenSQLite(cfg.Storage.DataDir)
	if err != nil {
		logging.Log.Fatal("failed to open store", zap.Error(err))
	}
	defer kv.Close()

	salePoints := queue.NewSalePointQueue(kv)
	segments := queue.NewSegmentQueue(kv)
	snapshots := recording.NewSnapshotStore(kv)

	probeURL := cfg.Reachability.ProbeURL
	if probeURL == "" {
		probeURL = cfg.Remote.BaseURL + "/health"
	}
	monitor := reachability.NewMonitor(
		reachability.NewHTTPProbe(probeURL, cfg.Remote.GetTimeout()),
		cfg.Reachability.GetInterval(),
	)

	client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.AuthToken, cfg.Remote.GetTimeout())
	sync := syncer.New(kv, client, salePoints, segments, monitor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	sync.Start(ctx)

	var periodic *syncer.PeriodicTrigger
	if cfg.Scheduler.Enabled {
		periodic = syncer.NewPeriodicTrigger(sync, cfg.Scheduler.Interval)
		if err := periodic.Start(); err != nil {
			logging.Log.Fatal("failed to start periodic trigger", zap.Error(err))
		}
	}

	handler := api.NewHandler(sync, snapshots)
	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: handler.Routes(),
	}

	go func() {
		logging.Log.Info("control API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Log.Info("shutting down")

	if periodic != nil {
		periodic.Stop()
	}
	server.Shutdown(context.Background())
	sync.Stop()
	monitor.Stop()
}

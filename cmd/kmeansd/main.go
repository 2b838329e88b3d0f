// Command kmeansd runs the clustering engine behind a REST API,
// backed by an embedded BadgerDB relation store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clusterkit/kmeans/pkg/api/rest"
	"github.com/clusterkit/kmeans/pkg/api/rest/middleware"
	"github.com/clusterkit/kmeans/pkg/config"
	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/observability"
	"github.com/clusterkit/kmeans/pkg/storage/badger"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("kmeansd v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	logger := observability.NewDefaultLogger()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal("loading configuration", map[string]interface{}{"error": err.Error()})
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.SetLevel(observability.ParseLogLevel(cfg.Server.LogLevel))

	if cfg.Storage.Backend != "badger" {
		logger.Fatal("unsupported storage backend for kmeansd", map[string]interface{}{
			"backend": cfg.Storage.Backend,
			"note":    "pinecone and qdrant are PointSource-only adapters and are not wired into kmeansd",
		})
	}

	var store *badger.Store
	if cfg.Storage.InMemory {
		store, err = badger.OpenInMemory()
	} else {
		store, err = badger.Open(cfg.Storage.DataDir)
	}
	if err != nil {
		logger.Fatal("opening storage backend", map[string]interface{}{"error": err.Error()})
	}
	defer store.Close()

	metrics := observability.NewMetrics()

	tracer, err := observability.InitTracer(context.Background(), observability.DefaultTracingConfig())
	if err != nil {
		logger.Fatal("initializing tracing", map[string]interface{}{"error": err.Error()})
	}
	defer tracer.Shutdown(context.Background())

	engine := kmeans.NewEngine(store, store, logger)

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSEnabled: false,
		Auth: middleware.AuthConfig{
			Enabled:     false,
			PublicPaths: []string{"/v1/health", "/metrics"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        true,
			RequestsPerSec: 5,
			Burst:          10,
			PerIP:          true,
		},
	}

	server := rest.NewServer(restConfig, engine, metrics, logger)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting kmeansd", map[string]interface{}{"address": cfg.Server.Address()})
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-errChan:
		logger.Error("server error", map[string]interface{}{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("error stopping server", map[string]interface{}{"error": err.Error()})
	}

	time.Sleep(50 * time.Millisecond)
	logger.Info("kmeansd stopped", nil)
}

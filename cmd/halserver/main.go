package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reoring/halclient/internal/config"
	"github.com/reoring/halclient/internal/halserver"
)

func main() {
	var (
		configPath string
		addr       string
		dbPath     string
		seed       bool
	)
	flag.StringVar(&configPath, "config", "", "config file (default: search $HALCLIENT_CONFIG, ./halclient.yaml, ~/.config/halclient)")
	flag.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (overrides server.database)")
	flag.BoolVar(&seed, "seed", false, "insert the demo data set on start")
	flag.Parse()

	var (
		cfg *config.Config
		loc config.Location
		err error
	)
	if configPath != "" {
		cfg, loc, err = config.LoadFromPath(configPath)
	} else {
		cfg, loc, err = config.Load()
	}
	if err != nil {
		fatalf("config: %v", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath != "" {
		cfg.Server.Database = dbPath
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fatalf("logger: %v", err)
	}
	logger.Debug("config loaded", "path", loc.Path, "source", loc.Source)

	store, err := halserver.Open(cfg.Server.Database)
	if err != nil {
		fatalf("store: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seed {
		if err := store.Seed(ctx); err != nil {
			fatalf("seed: %v", err)
		}
		logger.Info("seeded demo data", "database", cfg.Server.Database)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           halserver.New(store, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Server.Addr, "database", cfg.Server.Database)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalf("serve: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}

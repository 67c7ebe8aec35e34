package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"voip-routing/internal/config"
	"voip-routing/internal/db"
	"voip-routing/internal/httpapi"
	"voip-routing/internal/routing"
	"voip-routing/internal/store"
)

func main() {
	cfgPath := flag.String("config", "/etc/voiproutingd.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(cfg.Log.Handler(cfg.Log.Writer()))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("voiproutingd exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		loader store.Loader
		pinger httpapi.Pinger
	)
	switch cfg.Store.Source {
	case config.StoreSourcePostgres:
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		loader = store.PGLoader{DB: pool}
		pinger = pool
	case config.StoreSourceFile:
		loader = store.FileLoader{Path: cfg.Store.SeedFile}
	}

	var rdb *redis.Client
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	holder := store.NewHolder()
	refresher := &store.Refresher{
		Loader:   loader,
		Holder:   holder,
		Interval: cfg.Store.RefreshInterval,
		Redis:    rdb,
		Channel:  cfg.Store.InvalidateChannel,
		Logger:   logger.With("subsystem", "store"),
	}
	if err := refresher.Reload(ctx); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}

	secret, err := cfg.DirectorySecret()
	if err != nil {
		return err
	}

	hooks := routing.NewHookRegistry()
	for _, h := range cfg.Hooks {
		var hook routing.RoutingHook = routing.NewHTTPHook(h.URL, h.Timeout)
		if h.RateLimit > 0 {
			hook = routing.NewRateLimitedHook(hook, h.RateLimit, h.Burst)
		}
		hooks.RegisterWithTimeout(h.Name, hook, h.Timeout)
	}

	engine := routing.NewEngine(holder, routing.Options{
		Defaults: routing.Defaults{
			InternalPrefix:  cfg.Routing.InternalPrefix,
			VoicemailPrefix: cfg.Routing.VoicemailPrefix,
			PSTNGateway:     cfg.Routing.PSTNGateway,
			E164Enabled:     *cfg.Routing.E164Enabled,
			HookTimeout:     cfg.Routing.HookTimeout,
		},
		DefaultTenantID: cfg.Routing.DefaultTenant,
		Hooks:           hooks,
		DirectorySecret: secret,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpapi.NewRouter(cfg, engine, pinger, logger.With("subsystem", "http")),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("voiproutingd listening", "addr", cfg.ListenAddr, "store", cfg.Store.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return refresher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

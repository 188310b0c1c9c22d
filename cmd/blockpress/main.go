// Command blockpress runs the block-based document composition server.
//
// It loads configuration, opens the revision store, registers built-in
// and external plugin bundles, and serves the document API until
// interrupted.
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

	"github.com/rs/zerolog"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/compose"
	"github.com/blockpress/blockpress/internal/config"
	"github.com/blockpress/blockpress/internal/hook"
	"github.com/blockpress/blockpress/internal/plugin"
	"github.com/blockpress/blockpress/internal/plugin/builtin"
	"github.com/blockpress/blockpress/internal/plugin/lua"
	"github.com/blockpress/blockpress/internal/revision"
	"github.com/blockpress/blockpress/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blockpress:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store      revision.Store
		activation plugin.ActivationLister = plugin.AllActive{}
	)
	if cfg.DBPath != "" {
		sq, err := revision.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer sq.Close()
		store = sq
		activation = sq
		log.Info().Str("path", cfg.DBPath).Msg("revision store opened")
	} else {
		store = revision.NewMemoryStore()
		log.Warn().Msg("no db_path configured; revisions are in-memory only")
	}

	catalog := block.NewCatalog()
	hooks := hook.NewPipeline(hook.WithLogger(log))
	registry := plugin.NewRegistry(catalog, hooks, plugin.WithRegistryLogger(log))

	var sources []plugin.Source
	for _, dir := range cfg.PluginDirs {
		sources = append(sources,
			lua.DirSource{Dir: dir, Activation: activation},
			plugin.ManifestSource{Dir: dir, Activation: activation},
		)
	}

	loader := plugin.NewLoader(registry,
		plugin.WithBuiltins(builtin.Bundles()...),
		plugin.WithSources(sources...),
		plugin.WithLoaderLogger(log),
	)
	summary := loader.LoadAll(ctx)
	log.Info().
		Int("registered", summary.Registered).
		Int("failed", summary.Failed).
		Int("blocks", catalog.Len()).
		Msg("plugin load complete")

	if cfg.WatchPlugins && len(cfg.PluginDirs) > 0 {
		watcher, err := plugin.NewWatcher(cfg.PluginDirs, nil, log)
		if err != nil {
			log.Warn().Err(err).Msg("plugin watching disabled")
		} else {
			go watcher.Run(ctx)
		}
	}

	resolver := compose.NewResolver(catalog, hooks, store, compose.WithLogger(log))
	api := server.New(resolver, store, registry, server.WithLogger(log))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/scriptbots/config"
	"github.com/pthm-cable/scriptbots/game"
	"github.com/pthm-cable/scriptbots/server"
	"github.com/pthm-cable/scriptbots/storage"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, census and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	load := flag.String("load", "", "Save file to load at startup (\"latest\" = newest archived snapshot)")
	serve := flag.String("serve", "", "Serve the live feed on this address, e.g. :8080")
	archive := flag.String("archive", "", "Snapshot archive kind: memory, file or sqlite (empty = use config)")
	archivePath := flag.String("archive-path", "", "Snapshot archive location (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *archive != "" {
		cfg.Storage.Kind = *archive
	}
	if *archivePath != "" {
		cfg.Storage.Path = *archivePath
	}
	if *serve != "" {
		cfg.Server.Addr = *serve
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rngSeed, *logStats, *outputDir, *load, *maxTicks); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, seed int64, logStats bool, outputDir, load string, maxTicks int) error {
	store, err := storage.Open(ctx, cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	w, err := game.New(cfg, game.Options{
		Seed:      seed,
		LogStats:  logStats,
		OutputDir: outputDir,
		Store:     store,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	switch load {
	case "":
	case "latest":
		if err := w.LoadFromStore(ctx, ""); err != nil {
			return err
		}
	default:
		if err := w.LoadFromFile(load); err != nil {
			return err
		}
	}

	var live *server.Server
	if cfg.Server.Addr != "" {
		live = server.New(w.Config(), w)
		go func() {
			if err := live.Run(ctx); err != nil {
				slog.Error("live feed stopped", "error", err)
			}
		}()
	}

	slog.Info("starting simulation",
		"seed", seed,
		"agents", w.NumAgents(),
		"max_ticks", maxTicks,
		"archive", cfg.Storage.Kind,
		"serve", cfg.Server.Addr,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "epoch", w.Epoch(), "tick", w.Tick(), "step", w.Step())
			w.LogWorldState()
			return nil
		default:
		}

		w.Update()
		if live != nil {
			live.Publish(w)
		}

		if maxTicks > 0 && w.Step() >= int64(maxTicks) {
			slog.Info("max ticks reached", "step", w.Step())
			w.LogWorldState()
			return nil
		}
	}
}

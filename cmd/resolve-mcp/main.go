package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/framefold/resolve-mcp/config"
	"github.com/framefold/resolve-mcp/engine"
	"github.com/framefold/resolve-mcp/internal/logctx"
	"github.com/framefold/resolve-mcp/mcp"
	"github.com/framefold/resolve-mcp/resolve"
	"github.com/framefold/resolve-mcp/resolve/script"
	"github.com/framefold/resolve-mcp/resolve/sim"
	"github.com/framefold/resolve-mcp/stdio"
)

const version = "0.2.0"

const instructions = "Tools for driving DaVinci Resolve: create and open " +
	"projects, manage timelines, import media, and switch pages. Color and " +
	"render tools are present but not implemented yet."

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "resolve-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("RESOLVE_MCP_CONFIG"))
	if err != nil {
		return err
	}

	// stdout is protocol data; every diagnostic goes to stderr.
	logOpts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	var inner slog.Handler
	if cfg.Log.Format == "json" {
		inner = slog.NewJSONHandler(os.Stderr, logOpts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, logOpts)
	}
	log := slog.New(logctx.Handler{Handler: inner})
	slog.SetDefault(log)

	var res resolve.Resolve
	switch cfg.Mode {
	case config.ModeScript:
		bridge, err := script.Launch(ctx, script.Options{
			PythonPath: cfg.Script.PythonPath,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("connecting to DaVinci Resolve: %w", err)
		}
		defer bridge.Close()
		res = bridge
	default:
		res = sim.New(sim.WithTimelineDefaults(
			cfg.Sim.FrameRate,
			cfg.Sim.ResolutionWidth,
			cfg.Sim.ResolutionHeight,
		))
	}

	eng := engine.New(res, log)
	h := stdio.New(eng, mcp.ImplementationInfo{Name: "resolve-mcp", Version: version},
		stdio.WithLogger(log),
		stdio.WithInstructions(instructions),
	)

	log.Info("serving", slog.String("mode", cfg.Mode), slog.String("version", version))
	if err := h.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

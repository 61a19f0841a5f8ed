// main is the entry point of the Student Registry demo.
//
// STARTUP SEQUENCE:
//  1. Load configuration (defaults suffice — no flags or files needed)
//  2. Initialise the logger
//  3. Build the schema value and open the in-memory SQLite store
//  4. Run the walkthrough phases against the one open session
//  5. Exit: zero on success, non-zero the moment any phase fails
//
// RUNNING THE DEMO:
//
//	go run ./cmd/student-registry
//
// or against an on-disk database you want to inspect afterwards:
//
//	STORAGE_DSN=students.db go run ./cmd/student-registry
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aanand-mishra/student-registry/internal/config"
	"github.com/aanand-mishra/student-registry/internal/registry"
	"github.com/aanand-mishra/student-registry/internal/storage"
	"github.com/aanand-mishra/student-registry/internal/storage/sqlite"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// Every field has a default, so this never requires input. "Must"
	// signals: if this returns, config is guaranteed valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// slog is Go's structured logger (stdlib since Go 1.21). Lifecycle
	// events go through it; phase RESULTS are printed to stdout by the
	// walkthrough itself, which keeps the demo output greppable even
	// when logs are JSON.
	log := setupLogger(cfg.Env)

	log.Info("starting student-registry",
		slog.String("env", cfg.Env),
		slog.String("dsn", cfg.StorageDSN),
	)

	// ── 3. Build Schema, Open Storage ─────────────────────────────────────
	// The schema is an explicit value, built exactly once here and
	// passed into the store constructor — no global table registry.
	// Note: the enrolled-at default is captured NOW, at schema
	// construction, and shared by every row inserted this run.
	schema := storage.NewSchema(time.Now())

	// We keep the result as the storage.Session INTERFACE, not
	// *sqlite.Session — the walkthrough only ever sees the interface.
	var sess storage.Session
	sess, err := sqlite.New(cfg.StorageDSN, schema)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1) // non-zero exit signals failure to the OS / CI system
	}
	defer sess.Close()

	log.Info("storage initialised")

	// ── 4. Run the Walkthrough ────────────────────────────────────────────
	// One session, one pass, fully sequential. Any error aborts the
	// remaining phases; nothing is retried.
	demo := registry.New(log, sess, os.Stdout)
	if err := demo.Run(context.Background()); err != nil {
		log.Error("walkthrough failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("walkthrough complete")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}

// Package testutil provides shared test helpers for setting up data roots
// and services.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/promptdeck/internal/appstate"
	"github.com/starford/promptdeck/internal/index"
	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/promptstore"
	"github.com/starford/promptdeck/internal/settings"
	"github.com/starford/promptdeck/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Paths creates a temporary data root with its prompts directory.
func Paths(t *testing.T) storage.Paths {
	t.Helper()
	paths, err := storage.NewPaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := paths.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return paths
}

// Service wires a promptservice.Service over a fresh data root.
func Service(t *testing.T, opts ...promptservice.Option) (*promptservice.Service, storage.Paths) {
	t.Helper()
	paths := Paths(t)
	logger := Logger()
	svc := promptservice.New(
		index.NewStore(paths, logger),
		promptstore.New(paths, logger),
		appstate.New(settings.DefaultHotkey),
		logger,
		opts...,
	)
	return svc, paths
}

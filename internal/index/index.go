// Package index keeps the cached prompt index (index.json) consistent with
// the prompts tree on disk.
//
// The directory tree is authoritative for which prompts exist and when their
// content last changed; the cache is authoritative for everything else (name,
// description, usage, decorations) for as long as the backing file exists.
package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/storage"
)

// Store loads, reconciles and persists the index file.
type Store struct {
	paths    storage.Paths
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	onSynced func(Report)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for synthesised entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how ids for discovered files are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithSyncHook registers fn to observe every reconciliation report.
func WithSyncHook(fn func(Report)) Option {
	return func(s *Store) { s.onSynced = fn }
}

// NewStore creates a Store for the given layout.
func NewStore(paths storage.Paths, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		paths:  paths,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Paths returns the layout the store operates on.
func (s *Store) Paths() storage.Paths {
	return s.paths
}

// Load returns the reconciled index. A missing cache file starts from an
// empty index; a corrupt one is renamed aside and replaced. The result is
// persisted when reconciliation changed it or no cache file existed.
func (s *Store) Load() (*models.Index, error) {
	idx, _, err := s.Sync()
	return idx, err
}

// Sync is Load that also reports what reconciliation did.
func (s *Store) Sync() (*models.Index, Report, error) {
	idx, found, err := storage.LoadJSON[models.Index](s.paths.IndexPath, s.logger)
	if err != nil {
		return nil, Report{}, fmt.Errorf("index: load: %w", err)
	}
	if idx == nil {
		idx = models.NewIndex()
	}
	idx.Normalize()

	files, err := storage.Scan(s.paths.PromptsDir)
	if err != nil {
		return nil, Report{}, fmt.Errorf("index: %w", err)
	}

	report := Reconcile(idx, files, s.now(), s.newID)
	if s.onSynced != nil {
		s.onSynced(report)
	}

	if report.Changed() || !found {
		if err := s.Save(idx); err != nil {
			return nil, Report{}, err
		}
		s.logger.Debug("index: synced",
			slog.Int("added", report.Added),
			slog.Int("removed", report.Removed),
			slog.Int("refreshed", report.Refreshed),
			slog.Bool("folders_changed", report.FoldersChanged))
	}
	return idx, report, nil
}

// Save writes idx to the index file atomically.
func (s *Store) Save(idx *models.Index) error {
	if err := storage.SaveJSON(s.paths.IndexPath, idx); err != nil {
		return fmt.Errorf("index: save: %w", err)
	}
	return nil
}

// Package promptservice exposes the request/response operations of the
// prompt library. Each operation loads a reconciled index, mutates it
// through the document store and persists it again.
package promptservice

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/promptdeck/internal/appstate"
	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/checksum"
	"github.com/starford/promptdeck/internal/index"
	"github.com/starford/promptdeck/internal/metrics"
	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptstore"
	"github.com/starford/promptdeck/internal/search"
	"github.com/starford/promptdeck/internal/seed"
	"github.com/starford/promptdeck/internal/settings"
)

// Notifier receives change notifications after successful mutations.
type Notifier interface {
	PublishPromptEvent(kind, id string)
	PublishFolderEvent(kind, name string)
	PublishReconciled(added, removed, refreshed int)
}

// PromptDetail is a prompt with the version of its content.
type PromptDetail struct {
	models.Prompt
	Checksum string `json:"checksum"`
}

// Service coordinates the index store and the document store.
//
// All operations hold one mutex for their whole load, mutate and save
// sequence. Other processes writing the same directory are not excluded.
type Service struct {
	mu sync.Mutex

	index    *index.Store
	docs     *promptstore.Store
	state    *appstate.State
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier publishes change events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New creates a Service.
func New(idx *index.Store, docs *promptstore.Store, state *appstate.State, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		index:  idx,
		docs:   docs,
		state:  state,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observe(op string, err *error) {
	s.metrics.ObserveOperation(op, *err)
	if *err != nil && !isClientError(*err) {
		s.logger.Error("operation failed", slog.String("op", op), slog.String("error", (*err).Error()))
	}
}

func isClientError(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrValidation)
}

// load returns the reconciled index. Callers must hold s.mu.
func (s *Service) load() (*models.Index, index.Report, error) {
	idx, report, err := s.index.Sync()
	if err != nil {
		return nil, report, err
	}
	s.metrics.ObserveReconcile(report.Added, report.Removed, report.Refreshed, len(idx.Prompts))
	if report.Changed() && s.notifier != nil {
		s.notifier.PublishReconciled(report.Added, report.Removed, report.Refreshed)
	}
	return idx, report, nil
}

func (s *Service) promptEvent(kind, id string) {
	if s.notifier != nil {
		s.notifier.PublishPromptEvent(kind, id)
	}
}

func (s *Service) folderEvent(kind, name string) {
	if s.notifier != nil {
		s.notifier.PublishFolderEvent(kind, name)
	}
}

// Index returns the whole reconciled index.
func (s *Service) Index() (_ *models.Index, err error) {
	defer s.observe("get_index", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	return idx, err
}

// Reindex reconciles the index with the prompts tree and reports what
// changed.
func (s *Service) Reindex() (_ index.Report, err error) {
	defer s.observe("reindex", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	_, report, err := s.load()
	return report, err
}

// Seed installs the sample prompts on first run.
func (s *Service) Seed() (_ bool, err error) {
	defer s.observe("seed", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	return seed.IfNeeded(s.index, s.docs, s.logger)
}

// Folders returns the known folder names in order.
func (s *Service) Folders() (_ []string, err error) {
	defer s.observe("get_folders", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	return idx.Folders, nil
}

// GetPrompt returns one prompt with its content.
func (s *Service) GetPrompt(id string) (_ *PromptDetail, err error) {
	defer s.observe("get_prompt", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	p, err := s.docs.Load(idx, id)
	if err != nil {
		return nil, err
	}
	return &PromptDetail{Prompt: *p, Checksum: checksum.Of(p.Content)}, nil
}

// SavePrompt updates the prompt whose id is indexed, or creates a new one.
// When ifMatch is set on an update it must match the checksum of the
// stored content.
func (s *Service) SavePrompt(p *models.Prompt, ifMatch string) (_ *models.PromptMetadata, err error) {
	defer s.observe("save_prompt", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(p, ifMatch, nil)
}

// CreatePrompt creates a prompt. A caller-chosen id must not be in use.
func (s *Service) CreatePrompt(p *models.Prompt) (_ *models.PromptMetadata, err error) {
	defer s.observe("create_prompt", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(p, "", func(idx *models.Index) error {
		if p.ID != "" && idx.Find(p.ID) != nil {
			return fmt.Errorf("%w: prompt %q already exists", apperr.ErrConflict, p.ID)
		}
		return nil
	})
}

// UpdatePrompt replaces an existing prompt.
func (s *Service) UpdatePrompt(id string, p *models.Prompt, ifMatch string) (_ *models.PromptMetadata, err error) {
	defer s.observe("update_prompt", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = id
	return s.save(p, ifMatch, func(idx *models.Index) error {
		if idx.Find(id) == nil {
			return fmt.Errorf("%w: prompt %q", apperr.ErrNotFound, id)
		}
		return nil
	})
}

func (s *Service) save(p *models.Prompt, ifMatch string, check func(*models.Index) error) (*models.PromptMetadata, error) {
	if err := validatePrompt(p); err != nil {
		return nil, err
	}
	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(idx); err != nil {
			return nil, err
		}
	}

	existing := p.ID != "" && idx.Find(p.ID) != nil
	if existing && strings.TrimSpace(ifMatch) != "" {
		current, err := s.docs.Load(idx, p.ID)
		if err != nil {
			return nil, err
		}
		if !checksum.Matches(ifMatch, current.Content) {
			return nil, fmt.Errorf("%w: prompt %q changed since it was read", apperr.ErrConflict, p.ID)
		}
	}

	meta, err := s.docs.Save(idx, p)
	if err != nil {
		return nil, err
	}
	if err := s.index.Save(idx); err != nil {
		return nil, err
	}

	if existing {
		s.promptEvent("updated", meta.ID)
	} else {
		s.promptEvent("created", meta.ID)
	}
	return meta, nil
}

// DeletePrompt removes a prompt and its file.
func (s *Service) DeletePrompt(id string) (err error) {
	defer s.observe("delete_prompt", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return err
	}
	if err := s.docs.Delete(idx, id); err != nil {
		return err
	}
	if err := s.index.Save(idx); err != nil {
		return err
	}
	s.promptEvent("deleted", id)
	return nil
}

// RecordUsage counts one use of a prompt.
func (s *Service) RecordUsage(id string) (err error) {
	defer s.observe("record_usage", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return err
	}
	if err := s.docs.RecordUsage(idx, id); err != nil {
		return err
	}
	if err := s.index.Save(idx); err != nil {
		return err
	}
	s.promptEvent("used", id)
	return nil
}

// Search ranks the indexed prompts against query. limit <= 0 returns all.
func (s *Service) Search(query string, limit int) (_ []models.PromptMetadata, err error) {
	defer s.observe("search", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	results := search.Limit(search.Search(idx.Prompts, query), limit)
	s.metrics.ObserveSearch(time.Since(start), len(results))
	return results, nil
}

// AddFolder creates a folder on disk and in the index.
func (s *Service) AddFolder(name string) (_ []string, err error) {
	defer s.observe("add_folder", &err)
	if err := validateFolderName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.docs.CreateFolder(name); err != nil {
		return nil, err
	}
	if err := index.AddFolder(idx, name); err != nil {
		return nil, err
	}
	if err := s.index.Save(idx); err != nil {
		return nil, err
	}
	s.folderEvent("created", name)
	return idx.Folders, nil
}

// RenameFolder renames a folder, cascading to every prompt filed under it.
func (s *Service) RenameFolder(oldName, newName string) (_ []string, err error) {
	defer s.observe("rename_folder", &err)
	if err := validateFolderName(newName); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := s.docs.RenameFolder(idx, oldName, newName); err != nil {
		return nil, err
	}
	if err := s.index.Save(idx); err != nil {
		return nil, err
	}
	s.folderEvent("renamed", newName)
	return idx.Folders, nil
}

// DeleteFolder removes a folder after moving its prompts to the root.
//
// The index is saved even when the folder could not be removed, so that
// prompts already moved to the root stay findable.
func (s *Service) DeleteFolder(name string) (_ []string, err error) {
	defer s.observe("delete_folder", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return nil, err
	}
	delErr := s.docs.DeleteFolder(idx, name)
	if saveErr := s.index.Save(idx); saveErr != nil {
		return nil, errors.Join(delErr, saveErr)
	}
	if delErr != nil {
		return idx.Folders, delErr
	}
	s.folderEvent("deleted", name)
	return idx.Folders, nil
}

// SetFolderMeta sets or clears the decoration of a folder.
func (s *Service) SetFolderMeta(name string, icon, color *string) (_ models.FolderMeta, err error) {
	defer s.observe("set_folder_meta", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _, err := s.load()
	if err != nil {
		return models.FolderMeta{}, err
	}
	if err := s.docs.SetFolderMeta(idx, name, icon, color); err != nil {
		return models.FolderMeta{}, err
	}
	if err := s.index.Save(idx); err != nil {
		return models.FolderMeta{}, err
	}
	s.folderEvent("decorated", name)
	if meta, ok := idx.FolderMeta[name]; ok {
		return meta, nil
	}
	return models.FolderMeta{Name: name}, nil
}

// Settings returns the application settings.
func (s *Service) Settings() (_ settings.AppSettings, err error) {
	defer s.observe("get_settings", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	return settings.Load(s.index.Paths(), s.logger)
}

// SaveSettings validates and stores the settings and applies the hotkey.
func (s *Service) SaveSettings(in settings.AppSettings) (_ settings.AppSettings, err error) {
	defer s.observe("save_settings", &err)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := settings.Save(s.index.Paths(), in); err != nil {
		return settings.AppSettings{}, err
	}
	s.state.SwapHotkey(in.General.Hotkey)
	return in, nil
}

// Hotkey returns the active launcher shortcut.
func (s *Service) Hotkey() string {
	return s.state.Hotkey()
}

// SetHotkey activates hotkey, or the default when it is empty, and
// persists it in the settings.
func (s *Service) SetHotkey(hotkey string) (_ string, err error) {
	defer s.observe("set_hotkey", &err)
	hotkey = strings.TrimSpace(hotkey)
	if hotkey == "" {
		hotkey = settings.DefaultHotkey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := settings.Load(s.index.Paths(), s.logger)
	if err != nil {
		return "", err
	}
	cur.General.Hotkey = hotkey
	if err := settings.Save(s.index.Paths(), cur); err != nil {
		return "", err
	}
	prev := s.state.SwapHotkey(hotkey)
	if prev != hotkey {
		s.logger.Info("hotkey changed", slog.String("from", prev), slog.String("to", hotkey))
	}
	return hotkey, nil
}

// Package promptstore performs per-prompt reads and writes against the
// index entries and their backing files.
//
// Every mutation orders its disk effects so that a crash leaves, at worst,
// an untracked file that the next reconciliation picks up: content is
// written before the entry is registered, and the entry is dropped before
// the content is removed.
package promptstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/index"
	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/storage"
)

const maxSuffix = 999

// Store reads and writes prompt files under the prompts directory.
type Store struct {
	paths  storage.Paths
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for created/updated/lastUsed stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how ids of new prompts are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a Store over paths.
func New(paths storage.Paths, logger *slog.Logger, opts ...Option) *Store {
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

// Paths returns the layout the store writes to.
func (s *Store) Paths() storage.Paths {
	return s.paths
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// EnsureUniqueFilename returns a filename derived from base that is free in
// folder: "<base>.md", then "<base>-1.md" up to "<base>-999.md", and finally
// a name carrying a fresh uuid.
func (s *Store) EnsureUniqueFilename(folder, base string) (string, error) {
	dir, err := s.paths.FolderPath(folder)
	if err != nil {
		return "", err
	}
	stem := SanitizeFilename(base)

	name := stem + storage.PromptExt
	if !exists(filepath.Join(dir, name)) {
		return name, nil
	}
	for i := 1; i <= maxSuffix; i++ {
		name = stem + "-" + strconv.Itoa(i) + storage.PromptExt
		if !exists(filepath.Join(dir, name)) {
			return name, nil
		}
	}
	return stem + "-" + uuid.NewString() + storage.PromptExt, nil
}

// Load returns the prompt with the given id together with its content.
func (s *Store) Load(idx *models.Index, id string) (*models.Prompt, error) {
	meta := idx.Find(id)
	if meta == nil {
		return nil, fmt.Errorf("%w: prompt %q", apperr.ErrNotFound, id)
	}
	path, err := s.paths.PromptPath(meta.Folder, meta.Filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("promptstore: read %s: %w", path, err)
	}
	return &models.Prompt{PromptMetadata: *meta, Content: string(data)}, nil
}

// Save updates the prompt whose id is already indexed, or creates a new one.
// It returns the stored metadata.
func (s *Store) Save(idx *models.Index, p *models.Prompt) (*models.PromptMetadata, error) {
	if _, err := s.paths.FolderPath(p.Folder); err != nil {
		return nil, err
	}
	if p.ID != "" {
		if existing := idx.Find(p.ID); existing != nil {
			return s.update(idx, existing, p)
		}
	}
	return s.create(idx, p)
}

func (s *Store) update(idx *models.Index, existing *models.PromptMetadata, p *models.Prompt) (*models.PromptMetadata, error) {
	oldPath, err := s.paths.PromptPath(existing.Folder, existing.Filename)
	if err != nil {
		return nil, err
	}

	if existing.Folder != p.Folder {
		filename, err := s.writeNew(p.Folder, p.Name, p.Content)
		if err != nil {
			return nil, err
		}
		s.removeFile(oldPath)
		existing.Filename = filename
	} else if err := storage.AtomicWrite(oldPath, []byte(p.Content)); err != nil {
		return nil, err
	}

	existing.Name = p.Name
	existing.Folder = p.Folder
	existing.Description = p.Description
	existing.Icon = p.Icon
	existing.Color = p.Color
	existing.Updated = s.stamp()
	index.EnsureFolder(idx, p.Folder)

	out := *existing
	return &out, nil
}

func (s *Store) create(idx *models.Index, p *models.Prompt) (*models.PromptMetadata, error) {
	id := p.ID
	if id == "" {
		id = s.newID()
	}

	filename, err := s.writeNew(p.Folder, p.Name, p.Content)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	meta := models.PromptMetadata{
		ID:          id,
		Name:        p.Name,
		Folder:      p.Folder,
		Description: p.Description,
		Filename:    filename,
		Created:     now,
		Updated:     now,
		Icon:        p.Icon,
		Color:       p.Color,
	}
	index.EnsureFolder(idx, p.Folder)
	idx.Prompts = append(idx.Prompts, meta)
	return &meta, nil
}

// writeNew picks a free filename for name in folder, creates the folder and
// writes content there.
func (s *Store) writeNew(folder, name, content string) (string, error) {
	filename, err := s.EnsureUniqueFilename(folder, name)
	if err != nil {
		return "", err
	}
	if err := s.CreateFolder(folder); err != nil {
		return "", err
	}
	path, err := s.paths.PromptPath(folder, filename)
	if err != nil {
		return "", err
	}
	if err := storage.AtomicWrite(path, []byte(content)); err != nil {
		return "", err
	}
	return filename, nil
}

// Delete drops the prompt's entry and then its file. A file that cannot be
// removed is logged and left for the next reconciliation.
func (s *Store) Delete(idx *models.Index, id string) error {
	meta := idx.Find(id)
	if meta == nil {
		return fmt.Errorf("%w: prompt %q", apperr.ErrNotFound, id)
	}
	folder, filename := meta.Folder, meta.Filename

	idx.Prompts = slices.DeleteFunc(idx.Prompts, func(m models.PromptMetadata) bool {
		return m.ID == id
	})

	path, err := s.paths.PromptPath(folder, filename)
	if err != nil {
		s.logger.Warn("promptstore: bad indexed path", slog.String("id", id), slog.String("error", err.Error()))
		return nil
	}
	s.removeFile(path)
	return nil
}

func (s *Store) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("promptstore: remove file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// CreateFolder creates the directory for name. The empty name is the
// prompts directory itself.
func (s *Store) CreateFolder(name string) error {
	dir, err := s.paths.FolderPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("promptstore: create folder %q: %w", name, err)
	}
	return nil
}

// RenameFolder renames a folder on disk and in the index, including every
// folder nested below it.
func (s *Store) RenameFolder(idx *models.Index, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if oldName == "" {
		return fmt.Errorf("%w: the root folder cannot be renamed", apperr.ErrValidation)
	}
	if newName == "" {
		return fmt.Errorf("%w: new folder name is empty", apperr.ErrValidation)
	}
	if strings.HasPrefix(newName, oldName+"/") {
		return fmt.Errorf("%w: cannot move folder %q into itself", apperr.ErrValidation, oldName)
	}
	if idx.HasFolder(newName) {
		return fmt.Errorf("%w: folder %q already exists", apperr.ErrConflict, newName)
	}

	oldDir, err := s.paths.FolderPath(oldName)
	if err != nil {
		return err
	}
	newDir, err := s.paths.FolderPath(newName)
	if err != nil {
		return err
	}

	if isDir(oldDir) {
		if exists(newDir) {
			return fmt.Errorf("%w: folder %q already exists on disk", apperr.ErrConflict, newName)
		}
		if err := os.MkdirAll(filepath.Dir(newDir), 0o755); err != nil {
			return fmt.Errorf("promptstore: rename folder: %w", err)
		}
		if err := os.Rename(oldDir, newDir); err != nil {
			return fmt.Errorf("promptstore: rename folder: %w", err)
		}
	} else {
		if !idx.HasFolder(oldName) {
			return fmt.Errorf("%w: folder %q", apperr.ErrNotFound, oldName)
		}
		if err := os.MkdirAll(newDir, 0o755); err != nil {
			return fmt.Errorf("promptstore: rename folder: %w", err)
		}
	}

	// A directory found on disk may not be listed yet.
	index.EnsureFolder(idx, oldName)
	return index.RenameFolder(idx, oldName, newName, s.stamp())
}

// DeleteFolder moves every prompt filed directly under name to the root,
// removes the emptied directory and drops the folder from the index.
//
// If the directory still holds anything afterwards (an untracked file or a
// nested folder) the error is returned and the folder stays listed; prompts
// already moved keep their new location in idx.
func (s *Store) DeleteFolder(idx *models.Index, name string) error {
	if name == "" {
		return fmt.Errorf("%w: the root folder cannot be deleted", apperr.ErrValidation)
	}
	dir, err := s.paths.FolderPath(name)
	if err != nil {
		return err
	}

	now := s.stamp()
	for i := range idx.Prompts {
		p := &idx.Prompts[i]
		if p.Folder != name {
			continue
		}
		if err := s.moveToRoot(p); err != nil {
			return err
		}
		p.Folder = ""
		p.Updated = now
	}

	if isDir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("promptstore: delete folder %q: %w", name, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: folder %q is not empty (%d untracked entries)", apperr.ErrConflict, name, len(entries))
		}
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("promptstore: delete folder %q: %w", name, err)
		}
	}

	index.DeleteFolder(idx, name)
	return nil
}

func (s *Store) moveToRoot(p *models.PromptMetadata) error {
	oldPath, err := s.paths.PromptPath(p.Folder, p.Filename)
	if err != nil {
		return err
	}

	target := p.Filename
	if exists(filepath.Join(s.paths.PromptsDir, target)) {
		if target, err = s.EnsureUniqueFilename("", p.Name); err != nil {
			return err
		}
	}

	if exists(oldPath) {
		if err := os.Rename(oldPath, filepath.Join(s.paths.PromptsDir, target)); err != nil {
			return fmt.Errorf("promptstore: move %s to root: %w", p.Filename, err)
		}
	}
	p.Filename = target
	return nil
}

// RecordUsage counts one use of the prompt.
func (s *Store) RecordUsage(idx *models.Index, id string) error {
	meta := idx.Find(id)
	if meta == nil {
		return fmt.Errorf("%w: prompt %q", apperr.ErrNotFound, id)
	}
	now := s.stamp()
	meta.UseCount++
	meta.LastUsed = &now
	return nil
}

// SetFolderMeta sets the decoration of a known folder. Clearing both icon
// and color removes the record.
func (s *Store) SetFolderMeta(idx *models.Index, name string, icon, color *string) error {
	if !idx.HasFolder(name) {
		return fmt.Errorf("%w: folder %q", apperr.ErrNotFound, name)
	}
	if icon == nil && color == nil {
		delete(idx.FolderMeta, name)
		return nil
	}
	if idx.FolderMeta == nil {
		idx.FolderMeta = make(map[string]models.FolderMeta)
	}
	idx.FolderMeta[name] = models.FolderMeta{Name: name, Icon: icon, Color: color}
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

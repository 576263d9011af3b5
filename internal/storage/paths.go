// Package storage owns the on-disk layout: the prompts tree, the cached
// index file and the settings file, plus the atomic write and scan
// primitives every persistence path goes through.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/promptdeck/internal/apperr"
)

// PromptExt is the extension of every prompt file.
const PromptExt = ".md"

const (
	promptsDirName   = "prompts"
	indexFileName    = "index.json"
	settingsFileName = "settings.json"
)

// Paths resolves every location under the data root.
type Paths struct {
	Root         string
	PromptsDir   string
	IndexPath    string
	SettingsPath string
}

// NewPaths lays out the data directory rooted at root.
func NewPaths(root string) (Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("storage: resolve root: %w", err)
	}
	return Paths{
		Root:         abs,
		PromptsDir:   filepath.Join(abs, promptsDirName),
		IndexPath:    filepath.Join(abs, indexFileName),
		SettingsPath: filepath.Join(abs, settingsFileName),
	}, nil
}

// EnsureDirs creates the root and prompts directories.
func (p Paths) EnsureDirs() error {
	if err := os.MkdirAll(p.PromptsDir, 0o755); err != nil {
		return fmt.Errorf("storage: create prompts dir: %w", err)
	}
	return nil
}

// FolderPath resolves a slash-separated folder name against the prompts
// directory and rejects any result that escapes it. The empty folder is
// the prompts directory itself.
func (p Paths) FolderPath(folder string) (string, error) {
	if folder == "" {
		return p.PromptsDir, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(folder))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("%w: absolute folder not allowed: %s", apperr.ErrValidation, folder)
	}
	joined := filepath.Join(p.PromptsDir, cleaned)
	if joined == p.PromptsDir || !strings.HasPrefix(joined, p.PromptsDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: folder escapes prompts root: %s", apperr.ErrValidation, folder)
	}
	return joined, nil
}

// PromptPath returns the absolute path of filename inside folder.
func (p Paths) PromptPath(folder, filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: bad filename: %q", apperr.ErrValidation, filename)
	}
	dir, err := p.FolderPath(folder)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

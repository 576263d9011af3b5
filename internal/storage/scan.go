package storage

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ScannedFile is one prompt file found on disk.
type ScannedFile struct {
	Folder   string    // slash-joined directory relative to the scan root; "" for the root
	Filename string    // base name including extension
	Path     string    // absolute path
	ModTime  time.Time // UTC; zero when unavailable
}

// Scan walks root and returns every prompt file sorted by (folder, filename).
// A missing root yields an empty result.
func Scan(root string) ([]ScannedFile, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ScannedFile{}, nil
		}
		return nil, fmt.Errorf("storage: stat scan root: %w", err)
	}

	out := []ScannedFile{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() || !IsPromptFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return err
		}
		folder := ""
		if rel != "." {
			folder = filepath.ToSlash(rel)
		}
		out = append(out, ScannedFile{
			Folder:   folder,
			Filename: d.Name(),
			Path:     p,
			ModTime:  modTime(d),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: scan: %w", err)
	}

	slices.SortFunc(out, func(a, b ScannedFile) int {
		if c := cmp.Compare(a.Folder, b.Folder); c != 0 {
			return c
		}
		return cmp.Compare(a.Filename, b.Filename)
	})
	return out, nil
}

// IsPromptFile reports whether name carries the prompt extension, ignoring case.
func IsPromptFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), PromptExt)
}

func modTime(d fs.DirEntry) time.Time {
	info, err := d.Info()
	if err != nil {
		return time.Time{}
	}
	t := info.ModTime()
	if t.Before(time.Unix(0, 0)) {
		return time.Time{}
	}
	return t.UTC()
}

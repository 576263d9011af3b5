package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadJSON decodes the JSON record at path into a new T.
//
// found is false when the file is absent, or when it could not be parsed:
// a corrupt file is renamed aside (see CorruptPath) and the caller is
// expected to substitute and persist its default. Only read failures other
// than "not exist" are returned as errors.
func LoadJSON[T any](path string, logger *slog.Logger) (value *T, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: read %s: %w", filepath.Base(path), err)
	}

	var v T
	if perr := json.Unmarshal(data, &v); perr != nil {
		aside := CorruptPath(path, time.Now())
		if rerr := os.Rename(path, aside); rerr != nil {
			logger.Warn("storage: rename corrupt file failed",
				slog.String("path", path),
				slog.String("error", rerr.Error()))
		} else {
			logger.Warn("storage: corrupt file renamed aside",
				slog.String("path", path),
				slog.String("moved_to", aside),
				slog.String("error", perr.Error()))
		}
		return nil, false, nil
	}
	return &v, true, nil
}

// SaveJSON writes v as indented JSON through AtomicWrite.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", filepath.Base(path), err)
	}
	return AtomicWrite(path, append(data, '\n'))
}

// CorruptPath returns the path a corrupt file is moved to:
// "index.json" becomes "index.corrupt.20060102150405".
func CorruptPath(path string, now time.Time) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return stem + ".corrupt." + now.UTC().Format("20060102150405")
}

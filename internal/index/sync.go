package index

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/storage"
)

// Report summarises one reconciliation pass.
type Report struct {
	Added          int // files on disk with no entry; entries synthesised
	Removed        int // entries whose file is gone; dropped
	Refreshed      int // entries whose updated time followed the file mtime
	Reassigned     int // entries given a fresh id because theirs was empty or taken
	FoldersChanged bool
}

// Changed reports whether the pass modified the index.
func (r Report) Changed() bool {
	return r.Added > 0 || r.Removed > 0 || r.Refreshed > 0 || r.Reassigned > 0 || r.FoldersChanged
}

type fileKey struct {
	folder   string
	filename string
}

// Reconcile merges idx with a fresh scan of the prompts tree, in place:
//   - entries are matched to files by (folder, filename)
//   - matched entries keep their metadata; updated follows the file mtime
//   - unmatched files get a synthesised entry
//   - entries without a file are dropped
//   - the folder list keeps known folders and gains every referenced one
//
// It touches no filesystem, so it can be driven by a fake scan.
func Reconcile(idx *models.Index, files []storage.ScannedFile, now time.Time, newID func() string) Report {
	var r Report

	existing := make(map[fileKey]models.PromptMetadata, len(idx.Prompts))
	for _, p := range idx.Prompts {
		k := fileKey{p.Folder, p.Filename}
		if _, dup := existing[k]; dup {
			r.Removed++
		}
		existing[k] = p
	}

	rebuilt := make([]models.PromptMetadata, 0, len(files))
	seenIDs := make(map[string]struct{}, len(files))

	for _, f := range files {
		k := fileKey{f.Folder, f.Filename}
		if meta, ok := existing[k]; ok {
			delete(existing, k)
			if !f.ModTime.IsZero() && !meta.Updated.Equal(f.ModTime) {
				meta.Updated = f.ModTime
				r.Refreshed++
			}
			if _, taken := seenIDs[meta.ID]; taken || meta.ID == "" {
				meta.ID = newID()
				r.Reassigned++
			}
			seenIDs[meta.ID] = struct{}{}
			rebuilt = append(rebuilt, meta)
			continue
		}

		ts := f.ModTime
		if ts.IsZero() {
			ts = now.UTC()
		}
		id := newID()
		seenIDs[id] = struct{}{}
		rebuilt = append(rebuilt, models.PromptMetadata{
			ID:       id,
			Name:     TitleFromFilename(f.Filename),
			Folder:   f.Folder,
			Filename: f.Filename,
			Created:  ts,
			Updated:  ts,
		})
		r.Added++
	}

	r.Removed += len(existing)
	idx.Prompts = rebuilt

	folders := make([]string, 0, len(idx.Folders))
	seen := make(map[string]struct{}, len(idx.Folders))
	for _, f := range idx.Folders {
		if _, dup := seen[f]; dup {
			r.FoldersChanged = true
			continue
		}
		seen[f] = struct{}{}
		folders = append(folders, f)
	}
	for _, p := range idx.Prompts {
		if p.Folder == "" {
			continue
		}
		if _, ok := seen[p.Folder]; !ok {
			seen[p.Folder] = struct{}{}
			folders = append(folders, p.Folder)
			r.FoldersChanged = true
		}
	}
	idx.Folders = folders

	return r
}

// TitleFromFilename derives a display name from a prompt filename:
// "code_review-v2.md" becomes "code review v2".
func TitleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	cleaned := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	if cleaned == "" {
		return "Untitled"
	}
	return cleaned
}

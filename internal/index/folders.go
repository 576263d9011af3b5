package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/models"
)

// AddFolder appends name to the folder list.
func AddFolder(idx *models.Index, name string) error {
	if idx.HasFolder(name) {
		return fmt.Errorf("%w: folder %q already exists", apperr.ErrConflict, name)
	}
	idx.Folders = append(idx.Folders, name)
	return nil
}

// EnsureFolder appends a non-empty name to the folder list if it is missing.
func EnsureFolder(idx *models.Index, name string) {
	if name != "" && !idx.HasFolder(name) {
		idx.Folders = append(idx.Folders, name)
	}
}

// RenameFolder renames a folder in the index only: the folder list entry,
// the folder of every prompt filed under it and its decoration. Moved
// prompts are stamped as in Relabel.
func RenameFolder(idx *models.Index, oldName, newName string, stamp time.Time) error {
	if idx.HasFolder(newName) {
		return fmt.Errorf("%w: folder %q already exists", apperr.ErrConflict, newName)
	}
	if !idx.HasFolder(oldName) {
		return fmt.Errorf("%w: folder %q", apperr.ErrNotFound, oldName)
	}
	Relabel(idx, oldName, newName, stamp)
	return nil
}

// Relabel rewrites every reference to oldName, including nested folders
// below it, to newName. Prompts that move get stamp as their updated time
// unless stamp is zero.
func Relabel(idx *models.Index, oldName, newName string, stamp time.Time) {
	for i := range idx.Prompts {
		if f, ok := RebaseFolder(idx.Prompts[i].Folder, oldName, newName); ok {
			idx.Prompts[i].Folder = f
			if !stamp.IsZero() {
				idx.Prompts[i].Updated = stamp
			}
		}
	}

	folders := make([]string, 0, len(idx.Folders))
	seen := make(map[string]struct{}, len(idx.Folders))
	for _, f := range idx.Folders {
		if rebased, ok := RebaseFolder(f, oldName, newName); ok {
			f = rebased
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		folders = append(folders, f)
	}
	idx.Folders = folders

	if idx.FolderMeta == nil {
		return
	}
	renamed := make(map[string]models.FolderMeta, len(idx.FolderMeta))
	for name, meta := range idx.FolderMeta {
		if rebased, ok := RebaseFolder(name, oldName, newName); ok {
			name = rebased
			meta.Name = rebased
		}
		renamed[name] = meta
	}
	idx.FolderMeta = renamed
}

// DeleteFolder drops name from the folder list and its decoration. Prompts
// filed under it move to the root; none are removed.
func DeleteFolder(idx *models.Index, name string) {
	folders := idx.Folders[:0]
	for _, f := range idx.Folders {
		if f != name {
			folders = append(folders, f)
		}
	}
	idx.Folders = folders

	for i := range idx.Prompts {
		if idx.Prompts[i].Folder == name {
			idx.Prompts[i].Folder = ""
		}
	}

	if idx.FolderMeta != nil {
		delete(idx.FolderMeta, name)
	}
}

// RebaseFolder maps folder from under oldName to under newName. ok is false
// when folder is neither oldName nor nested below it.
func RebaseFolder(folder, oldName, newName string) (string, bool) {
	if oldName == "" {
		return folder, false
	}
	if folder == oldName {
		return newName, true
	}
	if strings.HasPrefix(folder, oldName+"/") {
		return newName + folder[len(oldName):], true
	}
	return folder, false
}

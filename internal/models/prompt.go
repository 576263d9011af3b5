// Package models defines the domain types for promptdeck.
package models

import "time"

// PromptMetadata is one index entry. The prompt body lives only on disk.
type PromptMetadata struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Folder      string     `json:"folder"`
	Description string     `json:"description"`
	Filename    string     `json:"filename"`
	UseCount    uint64     `json:"useCount"`
	LastUsed    *time.Time `json:"lastUsed"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`
	Icon        *string    `json:"icon"`
	Color       *string    `json:"color"`
}

// Prompt is a PromptMetadata together with its full text content.
type Prompt struct {
	PromptMetadata
	Content string `json:"content"`
}

// FolderMeta holds the decorative attributes of a folder.
type FolderMeta struct {
	Name  string  `json:"name"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

// Index is the cached aggregate persisted as index.json.
type Index struct {
	Prompts    []PromptMetadata      `json:"prompts"`
	Folders    []string              `json:"folders"`
	FolderMeta map[string]FolderMeta `json:"folderMeta"`
	Seeded     bool                  `json:"seeded"`
}

// NewIndex returns an empty index with non-nil slices so that it
// serialises as empty arrays rather than null.
func NewIndex() *Index {
	return &Index{
		Prompts: []PromptMetadata{},
		Folders: []string{},
	}
}

// Find returns the entry with the given id, or nil.
func (idx *Index) Find(id string) *PromptMetadata {
	for i := range idx.Prompts {
		if idx.Prompts[i].ID == id {
			return &idx.Prompts[i]
		}
	}
	return nil
}

// HasFolder reports whether name is in the folder list.
func (idx *Index) HasFolder(name string) bool {
	for _, f := range idx.Folders {
		if f == name {
			return true
		}
	}
	return false
}

// Normalize replaces nil slices left by decoding `null` with empty ones.
func (idx *Index) Normalize() {
	if idx.Prompts == nil {
		idx.Prompts = []PromptMetadata{}
	}
	if idx.Folders == nil {
		idx.Folders = []string{}
	}
}

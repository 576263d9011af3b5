// Package seed installs the sample prompts on first run.
package seed

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/starford/promptdeck/internal/index"
	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptstore"
)

//go:embed samples/*.md
var samples embed.FS

type sample struct {
	name, folder, description, icon, file string
}

var catalog = []sample{
	{"Summarize", "Writing", "Summarize the content", "file-text", "summarize.md"},
	{"Markov Chain State", "AnalyzeCode", "Find all scary bugs", "pencil", "markov_chain_state.md"},
	{"Critical Thinking", "AnalyzeCode", "Generate alternatives and perspectives", "lightbulb", "critical_thinking.md"},
}

// IfNeeded installs the samples unless the index is already marked seeded.
// A library that already holds prompts is only marked. It reports whether
// any prompt was created.
func IfNeeded(store *index.Store, docs *promptstore.Store, logger *slog.Logger) (bool, error) {
	idx, err := store.Load()
	if err != nil {
		return false, err
	}
	if idx.Seeded {
		return false, nil
	}

	created := false
	if len(idx.Prompts) == 0 {
		for _, s := range catalog {
			content, err := samples.ReadFile("samples/" + s.file)
			if err != nil {
				return false, fmt.Errorf("seed: %w", err)
			}
			icon := s.icon
			meta, err := docs.Save(idx, &models.Prompt{
				PromptMetadata: models.PromptMetadata{
					Name:        s.name,
					Folder:      s.folder,
					Description: s.description,
					Icon:        &icon,
				},
				Content: string(content),
			})
			if err != nil {
				return false, fmt.Errorf("seed %q: %w", s.name, err)
			}
			logger.Debug("seed: created prompt", slog.String("id", meta.ID), slog.String("name", meta.Name))
		}
		created = true
	}

	idx.Seeded = true
	if err := store.Save(idx); err != nil {
		return false, err
	}
	if created {
		logger.Info("seed: installed sample prompts", slog.Int("count", len(catalog)))
	}
	return created, nil
}

// Package search ranks index entries against a free-text query.
package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/starford/promptdeck/internal/models"
)

const (
	nameWeight        = 3.0
	descriptionWeight = 2.0
	folderWeight      = 1.0
	prefixBonus       = 10.0
)

// Search orders entries against query. A blank query returns every entry in
// recency order; otherwise only entries with a positive score are returned,
// best first. The input slice is not modified.
func Search(entries []models.PromptMetadata, query string) []models.PromptMetadata {
	if strings.TrimSpace(query) == "" {
		return ByRecency(entries)
	}

	q := strings.ToLower(query)
	type scored struct {
		score float64
		meta  models.PromptMetadata
	}
	hits := make([]scored, 0, len(entries))
	for _, e := range entries {
		if s := Score(e, q); s > 0 {
			hits = append(hits, scored{score: s, meta: e})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]models.PromptMetadata, len(hits))
	for i, h := range hits {
		out[i] = h.meta
	}
	return out
}

// Score is the weighted match of one entry against a lowercased query.
func Score(e models.PromptMetadata, query string) float64 {
	name := strings.ToLower(e.Name)
	best := max(
		FuzzyScore(name, query)*nameWeight,
		FuzzyScore(strings.ToLower(e.Description), query)*descriptionWeight,
		FuzzyScore(strings.ToLower(e.Folder), query)*folderWeight,
	)
	if best <= 0 {
		return 0
	}
	if strings.HasPrefix(name, query) {
		best += prefixBonus
	}
	return best
}

// FuzzyScore matches query as a subsequence of text. Each matched rune adds
// 1, plus 2 when it directly follows the previous match, plus 1/(pos+1) for
// its position. The score is 0 unless every query rune is matched.
func FuzzyScore(text, query string) float64 {
	t := []rune(text)
	q := []rune(query)
	if len(q) == 0 {
		return 1
	}
	if len(q) > len(t) {
		return 0
	}

	var score float64
	qi, prev := 0, -1
	for ti, r := range t {
		if qi == len(q) {
			break
		}
		if r != q[qi] {
			continue
		}
		score++
		if prev >= 0 && ti == prev+1 {
			score += 2
		}
		score += 1 / float64(ti+1)
		prev = ti
		qi++
	}
	if qi < len(q) {
		return 0
	}
	return score
}

// ByRecency returns a copy of entries ordered by last use, most recent
// first; never-used entries follow, ordered by last update.
func ByRecency(entries []models.PromptMetadata) []models.PromptMetadata {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b models.PromptMetadata) int {
		switch {
		case a.LastUsed != nil && b.LastUsed != nil:
			return b.LastUsed.Compare(*a.LastUsed)
		case a.LastUsed != nil:
			return -1
		case b.LastUsed != nil:
			return 1
		default:
			return b.Updated.Compare(a.Updated)
		}
	})
	if out == nil {
		out = []models.PromptMetadata{}
	}
	return out
}

// Limit trims results to at most n entries. n <= 0 means no limit.
func Limit(results []models.PromptMetadata, n int) []models.PromptMetadata {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

package catalog

import (
	"sort"
	"strings"

	"github.com/desertthunder/librix/internal/models"
	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// Result is a ranked search hit.
type Result struct {
	Release *models.Release `json:"release" yaml:"release"`
	Name    string          `json:"matched_name" yaml:"matched_name"`
	Score   int             `json:"score" yaml:"score"`
}

// nameIndex implements sahilm/fuzzy.Source over every name of every release.
type nameIndex struct {
	names    []string // lowercased, searched
	display  []string
	releases []int
}

func newNameIndex(releases []*models.Release) *nameIndex {
	idx := &nameIndex{}
	for i, r := range releases {
		names := r.Names
		if len(names) == 0 && r.Title != "" {
			names = []string{r.Title}
		}
		for _, name := range names {
			idx.names = append(idx.names, strings.ToLower(name))
			idx.display = append(idx.display, name)
			idx.releases = append(idx.releases, i)
		}
	}
	return idx
}

// String returns the lowercase name at index i (implements fuzzy.Source)
func (n *nameIndex) String(i int) string { return n.names[i] }

// Len returns the number of names (implements fuzzy.Source)
func (n *nameIndex) Len() int { return len(n.names) }

// Search ranks releases whose names fuzzily match query, best first. Each release appears once, under its
// best-scoring name. A non-positive limit returns every hit.
func Search(releases []*models.Release, query string, limit int) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	idx := newNameIndex(releases)
	matches := fuzzy.FindFrom(query, idx)

	seen := map[int]bool{}
	var results []Result
	for _, m := range matches {
		ri := idx.releases[m.Index]
		if seen[ri] {
			continue
		}
		seen[ri] = true

		results = append(results, Result{Release: releases[ri], Name: idx.display[m.Index], Score: m.Score})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results
}

// Suggest returns up to limit names closest to query by edit distance, for "did you mean" hints when
// [Search] finds nothing.
func Suggest(releases []*models.Release, query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	type candidate struct {
		name     string
		distance int
	}

	seen := map[string]bool{}
	var candidates []candidate
	for _, r := range releases {
		for _, name := range r.Names {
			if seen[name] {
				continue
			}
			seen[name] = true
			candidates = append(candidates, candidate{
				name:     name,
				distance: fuzzysearch.LevenshteinDistance(query, strings.ToLower(name)),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	out := make([]string, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.name)
	}
	return out
}

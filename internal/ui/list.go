package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/librix/internal/models"
	"github.com/sahilm/fuzzy"
)

var _ list.Item = releaseItem{}

// releaseItem wraps [models.Release] with its ledger markers to implement [list.Item].
type releaseItem struct {
	release *models.Release
	marks   ledgerMarks
}

// ledgerMarks are the pending ledger deltas of one release.
type ledgerMarks struct {
	isNew          bool
	episodes       bool
	episodesBefore int
	torrents       bool
}

func (m ledgerMarks) any() bool { return m.isNew || m.episodes || m.torrents }

func marksFor(id int64, c *models.Changes) ledgerMarks {
	if c == nil {
		return ledgerMarks{}
	}
	var m ledgerMarks
	for _, n := range c.NewReleases {
		if n == id {
			m.isNew = true
			break
		}
	}
	m.episodesBefore, m.episodes = c.NewOnlineSeries[id]
	_, count := c.NewTorrents[id]
	_, sizes := c.NewTorrentSeries[id]
	m.torrents = count || sizes
	return m
}

func newReleaseItems(releases []*models.Release, c *models.Changes) []list.Item {
	items := make([]list.Item, len(releases))
	for i, r := range releases {
		items[i] = releaseItem{release: r, marks: marksFor(r.ID, c)}
	}
	return items
}

func (i releaseItem) FilterValue() string {
	if len(i.release.Names) == 0 {
		return i.release.Title
	}
	return strings.Join(i.release.Names, " / ")
}

func (i releaseItem) Title() string {
	title := i.release.Title
	if !i.marks.any() {
		return title
	}

	var markers []string
	if i.marks.isNew {
		markers = append(markers, "NEW")
	}
	if i.marks.episodes {
		markers = append(markers, fmt.Sprintf("+%d ep", len(i.release.Playlist)-i.marks.episodesBefore))
	}
	if i.marks.torrents {
		markers = append(markers, "torrents")
	}
	return fmt.Sprintf("%s %s", title, styles.marker.Render("["+strings.Join(markers, ", ")+"]"))
}

func (i releaseItem) Description() string {
	parts := []string{}
	if year := strings.TrimSpace(i.release.Year + " " + i.release.Season); year != "" {
		parts = append(parts, year)
	}
	if i.release.Type != "" {
		parts = append(parts, i.release.Type)
	}
	if i.release.Status != "" {
		parts = append(parts, i.release.Status)
	}
	return strings.Join(parts, " • ")
}

func (i releaseItem) pendingSummary() string {
	var lines []string
	if i.marks.isNew {
		lines = append(lines, "New release")
	}
	if i.marks.episodes {
		lines = append(lines, fmt.Sprintf("Episodes: %d -> %d", i.marks.episodesBefore, len(i.release.Playlist)))
	}
	if i.marks.torrents {
		lines = append(lines, "Torrents updated")
	}

	out := "Pending:"
	for _, l := range lines {
		out += "\n  " + l
	}
	return out
}

// fuzzyFilter ranks list items case-insensitively against every release name.
func fuzzyFilter(term string, targets []string) []list.Rank {
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}

	matches := fuzzy.Find(strings.ToLower(term), lower)
	ranks := make([]list.Rank, len(matches))
	for i, m := range matches {
		ranks[i] = list.Rank{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
	}
	return ranks
}

package formatter

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/librix/internal/models"
)

// ChangesReport is the display form of the change ledger: one entry per release with pending deltas.
type ChangesReport struct {
	Version   int64                 `json:"version" yaml:"version"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Summary   models.ChangesSummary `json:"summary" yaml:"summary"`
	Entries   []ChangeEntry         `json:"entries" yaml:"entries"`
}

// ChangeEntry lists the pending deltas of one release. Before values are the watermarks recorded when the
// delta was first seen; current values come from the cache and are nil when the release is not cached.
// Torrent label maps are keyed by the decimal torrent id so every output format decodes back alike.
type ChangeEntry struct {
	ReleaseID       int64            `json:"release_id" yaml:"release_id"`
	Title           string           `json:"title,omitempty" yaml:"title,omitempty"`
	NewRelease      bool             `json:"new_release,omitempty" yaml:"new_release,omitempty"`
	EpisodesBefore  *int             `json:"episodes_before,omitempty" yaml:"episodes_before,omitempty"`
	EpisodesNow     *int             `json:"episodes_now,omitempty" yaml:"episodes_now,omitempty"`
	TorrentsBefore  *int             `json:"torrents_before,omitempty" yaml:"torrents_before,omitempty"`
	TorrentsNow     *int             `json:"torrents_now,omitempty" yaml:"torrents_now,omitempty"`
	TorrentSeries   map[string]string `json:"torrent_series,omitempty" yaml:"torrent_series,omitempty"`
	TorrentSeriesTo map[string]string `json:"torrent_series_now,omitempty" yaml:"torrent_series_now,omitempty"`
}

// NewChangesReport builds a report from the ledger, resolving titles and current counts from releases.
// Releases missing from the map are reported by id only.
func NewChangesReport(c *models.Changes, releases map[int64]*models.Release) *ChangesReport {
	report := &ChangesReport{
		Version: c.Version,
		Summary: c.Summary(),
		Entries: []ChangeEntry{},
	}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt.UTC()
		report.UpdatedAt = &updated
	}

	for _, id := range c.ReleaseIDs() {
		entry := ChangeEntry{ReleaseID: id, NewRelease: slices.Contains(c.NewReleases, id)}
		r := releases[id]
		if r != nil {
			entry.Title = r.Title
		}

		if before, ok := c.NewOnlineSeries[id]; ok {
			entry.EpisodesBefore = &before
			if r != nil {
				now := len(r.Playlist)
				entry.EpisodesNow = &now
			}
		}
		if before, ok := c.NewTorrents[id]; ok {
			entry.TorrentsBefore = &before
			if r != nil {
				now := len(r.Torrents)
				entry.TorrentsNow = &now
			}
		}
		if labels, ok := c.NewTorrentSeries[id]; ok && len(labels) > 0 {
			entry.TorrentSeries = make(map[string]string, len(labels))
			for torrentID, label := range labels {
				entry.TorrentSeries[torrentKey(torrentID)] = label
			}
			if r != nil {
				entry.TorrentSeriesTo = map[string]string{}
				for _, t := range r.Torrents {
					if _, tracked := labels[t.ID]; tracked {
						entry.TorrentSeriesTo[torrentKey(t.ID)] = t.Series
					}
				}
			}
		}

		report.Entries = append(report.Entries, entry)
	}

	return report
}

// ChangesToText renders a report for the terminal
func ChangesToText(report *ChangesReport) []byte {
	var buf bytes.Buffer

	s := report.Summary
	buf.WriteString(fmt.Sprintf("Pending changes (version %d)\n", report.Version))
	if report.UpdatedAt != nil {
		buf.WriteString(fmt.Sprintf("Last recorded: %s\n", report.UpdatedAt.Format("2006-01-02 15:04:05")))
	}
	buf.WriteString(fmt.Sprintf("New releases: %d | New episodes: %d | New torrents: %d | Updated torrents: %d\n",
		s.NewReleases, s.NewOnlineSeries, s.NewTorrents, s.NewTorrentSeries))

	if len(report.Entries) == 0 {
		buf.WriteString("\nNothing pending.\n")
		return buf.Bytes()
	}

	for _, e := range report.Entries {
		title := e.Title
		if title == "" {
			title = "(not cached)"
		}
		buf.WriteString(fmt.Sprintf("\n[%d] %s\n", e.ReleaseID, title))

		if e.NewRelease {
			buf.WriteString("  - new release\n")
		}
		if e.EpisodesBefore != nil {
			buf.WriteString(fmt.Sprintf("  - episodes: %d -> %s\n", *e.EpisodesBefore, optionalInt(e.EpisodesNow)))
		}
		if e.TorrentsBefore != nil {
			buf.WriteString(fmt.Sprintf("  - torrents: %d -> %s\n", *e.TorrentsBefore, optionalInt(e.TorrentsNow)))
		}
		for _, torrentID := range sortedTorrentIDs(e.TorrentSeries) {
			now := "?"
			if label, ok := e.TorrentSeriesTo[torrentID]; ok {
				now = label
			}
			buf.WriteString(fmt.Sprintf("  - torrent %s: %s -> %s\n", torrentID, e.TorrentSeries[torrentID], now))
		}
	}

	return buf.Bytes()
}

// ChangesToMarkdown renders a report as a Markdown checklist
func ChangesToMarkdown(report *ChangesReport) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Pending changes\n\n")
	s := report.Summary
	buf.WriteString(fmt.Sprintf("**New releases**: %d\n", s.NewReleases))
	buf.WriteString(fmt.Sprintf("**New episodes**: %d\n", s.NewOnlineSeries))
	buf.WriteString(fmt.Sprintf("**New torrents**: %d\n", s.NewTorrents))
	buf.WriteString(fmt.Sprintf("**Updated torrents**: %d\n\n", s.NewTorrentSeries))

	for _, e := range report.Entries {
		title := e.Title
		if title == "" {
			title = "#" + strconv.FormatInt(e.ReleaseID, 10)
		}
		var notes []string
		if e.NewRelease {
			notes = append(notes, "new")
		}
		if e.EpisodesBefore != nil {
			notes = append(notes, fmt.Sprintf("episodes %d → %s", *e.EpisodesBefore, optionalInt(e.EpisodesNow)))
		}
		if e.TorrentsBefore != nil {
			notes = append(notes, fmt.Sprintf("torrents %d → %s", *e.TorrentsBefore, optionalInt(e.TorrentsNow)))
		}
		if len(e.TorrentSeries) > 0 {
			notes = append(notes, fmt.Sprintf("%d torrent(s) updated", len(e.TorrentSeries)))
		}
		buf.WriteString(fmt.Sprintf("- [ ] **%s** (%s)\n", title, strings.Join(notes, "; ")))
	}

	return buf.Bytes()
}

// FormatChanges renders a report in any supported format. CSV lists one row per entry.
func FormatChanges(format Format, report *ChangesReport) ([]byte, error) {
	switch format {
	case FormatJSON, FormatYAML:
		return Encode(format, report)
	case FormatMarkdown:
		return ChangesToMarkdown(report), nil
	case FormatCSV:
		return changesToCSV(report)
	default:
		return ChangesToText(report), nil
	}
}

func changesToCSV(report *ChangesReport) ([]byte, error) {
	rows := make([][]string, 0, len(report.Entries))
	for _, e := range report.Entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ReleaseID, 10),
			e.Title,
			strconv.FormatBool(e.NewRelease),
			optionalInt(e.EpisodesBefore),
			optionalInt(e.EpisodesNow),
			optionalInt(e.TorrentsBefore),
			optionalInt(e.TorrentsNow),
			strconv.Itoa(len(e.TorrentSeries)),
		})
	}
	return writeCSV([]string{"ID", "Title", "New", "EpisodesBefore", "EpisodesNow", "TorrentsBefore", "TorrentsNow", "UpdatedTorrents"}, rows)
}

func optionalInt(v *int) string {
	if v == nil {
		return "?"
	}
	return strconv.Itoa(*v)
}

func torrentKey(id int64) string { return strconv.FormatInt(id, 10) }

// sortedTorrentIDs orders decimal id keys numerically, falling back to string order for malformed keys.
func sortedTorrentIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		x, errA := strconv.ParseInt(a, 10, 64)
		y, errB := strconv.ParseInt(b, 10, 64)
		if errA != nil || errB != nil {
			return strings.Compare(a, b)
		}
		return cmp.Compare(x, y)
	})
	return ids
}

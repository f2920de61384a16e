package models

import (
	"slices"
	"sort"
	"time"
)

// Changes is the singleton ledger of pending structural deltas.
//
// Each map holds a watermark: at most one pending expectation per release and dimension.
// Version is bumped on every successful write and guards against lost updates.
type Changes struct {
	ID               string                     `json:"id" yaml:"id"`
	Version          int64                      `json:"version" yaml:"version"`
	NewReleases      []int64                    `json:"new_releases" yaml:"new_releases"`
	NewOnlineSeries  map[int64]int              `json:"new_online_series" yaml:"new_online_series"`
	NewTorrents      map[int64]int              `json:"new_torrents" yaml:"new_torrents"`
	NewTorrentSeries map[int64]map[int64]string `json:"new_torrent_series" yaml:"new_torrent_series"`
	UpdatedAt        time.Time                  `json:"updated_at" yaml:"updated_at"`
}

var _ Entity = (*Changes)(nil)

// NewChanges returns an empty ledger with the given id.
func NewChanges(id string) *Changes {
	c := &Changes{ID: id}
	c.ensure()
	return c
}

// Key returns the ledger id.
func (c *Changes) Key() string { return c.ID }

// ensure replaces nil maps so callers can write without checks.
func (c *Changes) ensure() {
	if c.NewReleases == nil {
		c.NewReleases = []int64{}
	}
	if c.NewOnlineSeries == nil {
		c.NewOnlineSeries = map[int64]int{}
	}
	if c.NewTorrents == nil {
		c.NewTorrents = map[int64]int{}
	}
	if c.NewTorrentSeries == nil {
		c.NewTorrentSeries = map[int64]map[int64]string{}
	}
}

// Clone returns a deep copy.
func (c *Changes) Clone() *Changes {
	out := &Changes{
		ID:               c.ID,
		Version:          c.Version,
		NewReleases:      slices.Clone(c.NewReleases),
		NewOnlineSeries:  make(map[int64]int, len(c.NewOnlineSeries)),
		NewTorrents:      make(map[int64]int, len(c.NewTorrents)),
		NewTorrentSeries: make(map[int64]map[int64]string, len(c.NewTorrentSeries)),
		UpdatedAt:        c.UpdatedAt,
	}
	for k, v := range c.NewOnlineSeries {
		out.NewOnlineSeries[k] = v
	}
	for k, v := range c.NewTorrents {
		out.NewTorrents[k] = v
	}
	for id, inner := range c.NewTorrentSeries {
		m := make(map[int64]string, len(inner))
		for k, v := range inner {
			m[k] = v
		}
		out.NewTorrentSeries[id] = m
	}
	out.ensure()
	return out
}

// Equal reports whether both ledgers hold the same pending entries. Id, version and timestamps are ignored.
func (c *Changes) Equal(o *Changes) bool {
	a, b := slices.Clone(c.NewReleases), slices.Clone(o.NewReleases)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return false
	}
	if !mapsEqual(c.NewOnlineSeries, o.NewOnlineSeries) || !mapsEqual(c.NewTorrents, o.NewTorrents) {
		return false
	}
	if len(c.NewTorrentSeries) != len(o.NewTorrentSeries) {
		return false
	}
	for id, inner := range c.NewTorrentSeries {
		other, ok := o.NewTorrentSeries[id]
		if !ok || !mapsEqual(inner, other) {
			return false
		}
	}
	return true
}

func mapsEqual[K comparable, V comparable](a, b map[K]V) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// AddNewRelease unions id into the new release set.
func (c *Changes) AddNewRelease(id int64) {
	c.ensure()
	if !slices.Contains(c.NewReleases, id) {
		c.NewReleases = append(c.NewReleases, id)
	}
}

// ObserveEpisodes applies the episode-count watermark for a release whose cached playlist had cached entries and whose
// remote playlist has remote entries. It must run before the cached playlist is replaced.
//
// A differing count records the cached count once. An entry recorded earlier resolves when the counts agree again.
func (c *Changes) ObserveEpisodes(id int64, cached, remote int) {
	c.ensure()
	observeCount(c.NewOnlineSeries, id, cached, remote)
}

// ObserveTorrents applies the same watermark as [Changes.ObserveEpisodes] to the torrent-list length.
func (c *Changes) ObserveTorrents(id int64, cached, remote int) {
	c.ensure()
	observeCount(c.NewTorrents, id, cached, remote)
}

func observeCount(pending map[int64]int, id int64, cached, remote int) {
	if _, ok := pending[id]; ok {
		if cached == remote {
			delete(pending, id)
		}
		return
	}
	if cached != remote {
		pending[id] = cached
	}
}

// ObserveTorrentSizes pairs old and new torrents by position and records the previous series label of every torrent
// whose size changed. Only the first label per torrent is kept. Pairs stop at the shorter list, so trailing entries of a
// shrinking list are never compared.
func (c *Changes) ObserveTorrentSizes(id int64, old, updated []TorrentItem) {
	c.ensure()
	n := min(len(old), len(updated))
	for i := 0; i < n; i++ {
		prev, next := old[i], updated[i]
		if prev.Size == next.Size {
			continue
		}

		labels, ok := c.NewTorrentSeries[id]
		if !ok {
			labels = map[int64]string{}
			c.NewTorrentSeries[id] = labels
		}
		if _, seen := labels[prev.ID]; !seen {
			labels[prev.ID] = prev.Series
		}
	}
}

// HasChanges reports whether any entry is pending.
func (c *Changes) HasChanges() bool {
	return len(c.NewReleases) > 0 || len(c.NewOnlineSeries) > 0 || len(c.NewTorrents) > 0 || len(c.NewTorrentSeries) > 0
}

// AcknowledgeNewReleases clears the new release set.
func (c *Changes) AcknowledgeNewReleases() { c.NewReleases = []int64{} }

// AcknowledgeEpisodes drops the episode watermark of a release.
func (c *Changes) AcknowledgeEpisodes(id int64) { delete(c.NewOnlineSeries, id) }

// AcknowledgeTorrents drops the torrent-count watermark of a release.
func (c *Changes) AcknowledgeTorrents(id int64) { delete(c.NewTorrents, id) }

// AcknowledgeTorrentSeries drops the recorded torrent labels of a release.
func (c *Changes) AcknowledgeTorrentSeries(id int64) { delete(c.NewTorrentSeries, id) }

// AcknowledgeRelease drops every pending entry that mentions id.
func (c *Changes) AcknowledgeRelease(id int64) {
	c.NewReleases = slices.DeleteFunc(c.NewReleases, func(v int64) bool { return v == id })
	c.AcknowledgeEpisodes(id)
	c.AcknowledgeTorrents(id)
	c.AcknowledgeTorrentSeries(id)
}

// Reset empties the ledger.
func (c *Changes) Reset() {
	c.NewReleases = nil
	c.NewOnlineSeries = nil
	c.NewTorrents = nil
	c.NewTorrentSeries = nil
	c.ensure()
}

// ChangesSummary counts pending entries per dimension.
type ChangesSummary struct {
	NewReleases      int `json:"new_releases" yaml:"new_releases"`
	NewOnlineSeries  int `json:"new_online_series" yaml:"new_online_series"`
	NewTorrents      int `json:"new_torrents" yaml:"new_torrents"`
	NewTorrentSeries int `json:"new_torrent_series" yaml:"new_torrent_series"`
}

// Summary counts pending entries. Torrent labels are counted per torrent.
func (c *Changes) Summary() ChangesSummary {
	s := ChangesSummary{
		NewReleases:     len(c.NewReleases),
		NewOnlineSeries: len(c.NewOnlineSeries),
		NewTorrents:     len(c.NewTorrents),
	}
	for _, inner := range c.NewTorrentSeries {
		s.NewTorrentSeries += len(inner)
	}
	return s
}

// ReleaseIDs returns every release id mentioned by the ledger in ascending order.
func (c *Changes) ReleaseIDs() []int64 {
	seen := map[int64]struct{}{}
	for _, id := range c.NewReleases {
		seen[id] = struct{}{}
	}
	for id := range c.NewOnlineSeries {
		seen[id] = struct{}{}
	}
	for id := range c.NewTorrents {
		seen[id] = struct{}{}
	}
	for id := range c.NewTorrentSeries {
		seen[id] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

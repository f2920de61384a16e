package models

import (
	"strconv"
	"time"
)

// PlaylistItem is one episode of a release's online playlist.
type PlaylistItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	SD    string `json:"sd,omitempty"`
	HD    string `json:"hd,omitempty"`
}

// HasSD reports whether a standard definition stream exists.
func (p PlaylistItem) HasSD() bool { return p.SD != "" }

// HasHD reports whether a high definition stream exists.
func (p PlaylistItem) HasHD() bool { return p.HD != "" }

// TorrentItem is one torrent file published for a release.
type TorrentItem struct {
	ID        int64  `json:"id"`
	Hash      string `json:"hash"`
	Leechers  int    `json:"leechers"`
	Seeders   int    `json:"seeders"`
	Completed int    `json:"completed"`
	Quality   string `json:"quality"`
	Series    string `json:"series"`
	Size      int64  `json:"size"`
	URL       string `json:"url"`
}

// BlockedInfo describes a regional block on a release.
type BlockedInfo struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

// FavoriteInfo is the signed-in user's annotation of a release.
type FavoriteInfo struct {
	Rating int  `json:"rating"`
	Added  bool `json:"added"`
}

// ReleaseRecord is a release as returned by the remote catalog.
//
// Records are transient: they are mapped onto [Release] and discarded.
type ReleaseRecord struct {
	ID          int64          `json:"id"`
	Code        string         `json:"code"`
	Names       []string       `json:"names"`
	Series      string         `json:"series"`
	Poster      string         `json:"poster"`
	Favorite    *FavoriteInfo  `json:"favorite"`
	Last        string         `json:"last"`
	Status      string         `json:"status"`
	Type        string         `json:"type"`
	Genres      []string       `json:"genres"`
	Voices      []string       `json:"voices"`
	Year        string         `json:"year"`
	Season      string         `json:"season"`
	Description string         `json:"description"`
	Blocked     *BlockedInfo   `json:"blockedInfo"`
	Playlist    []PlaylistItem `json:"playlist"`
	Torrents    []TorrentItem  `json:"torrents"`
}

// Rating returns the favorite rating, or zero without a favorite annotation.
func (r ReleaseRecord) Rating() int {
	if r.Favorite == nil {
		return 0
	}
	return r.Favorite.Rating
}

// Timestamp parses Last as unix seconds; unparsable values yield zero.
func (r ReleaseRecord) Timestamp() int64 {
	ts, err := strconv.ParseInt(r.Last, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// Release is the cached projection of a [ReleaseRecord].
type Release struct {
	ID            int64          `json:"id" yaml:"id"`
	Code          string         `json:"code" yaml:"code"`
	Title         string         `json:"title" yaml:"title"`
	Names         []string       `json:"names" yaml:"names"`
	Description   string         `json:"description" yaml:"description"`
	Type          string         `json:"type" yaml:"type"`
	Status        string         `json:"status" yaml:"status"`
	Series        string         `json:"series" yaml:"series"`
	Poster        string         `json:"poster" yaml:"poster"`
	Year          string         `json:"year" yaml:"year"`
	Season        string         `json:"season" yaml:"season"`
	Genres        []string       `json:"genres" yaml:"genres"`
	Voices        []string       `json:"voices" yaml:"voices"`
	Rating        int            `json:"rating" yaml:"rating"`
	Timestamp     int64          `json:"timestamp" yaml:"timestamp"`
	Blocked       bool           `json:"blocked" yaml:"blocked"`
	BlockedReason string         `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty"`
	Playlist      []PlaylistItem `json:"playlist" yaml:"playlist"`
	Torrents      []TorrentItem  `json:"torrents" yaml:"torrents"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" yaml:"updated_at"`
}

var _ Entity = (*Release)(nil)

// Key returns the release id as a string.
func (r *Release) Key() string { return strconv.FormatInt(r.ID, 10) }

// OriginalName returns the second name (usually the romanized title), or the title when only one name exists.
func (r *Release) OriginalName() string {
	if len(r.Names) > 1 {
		return r.Names[1]
	}
	return r.Title
}

// NewRelease maps a remote record onto a fresh cached release.
func NewRelease(rec ReleaseRecord) *Release {
	r := &Release{ID: rec.ID, Poster: rec.Poster}
	r.Apply(rec)
	r.Playlist = clonePlaylist(rec.Playlist)
	r.Torrents = cloneTorrents(rec.Torrents)
	return r
}

// Apply copies every scalar field of rec onto r. Playlist, torrents and poster are left to the caller.
func (r *Release) Apply(rec ReleaseRecord) {
	r.Code = rec.Code
	r.Names = append([]string(nil), rec.Names...)
	r.Title = ""
	if len(rec.Names) > 0 {
		r.Title = rec.Names[0]
	}
	r.Description = rec.Description
	r.Type = rec.Type
	r.Status = rec.Status
	r.Series = rec.Series
	r.Year = rec.Year
	r.Season = rec.Season
	r.Genres = append([]string(nil), rec.Genres...)
	r.Voices = append([]string(nil), rec.Voices...)
	r.Rating = rec.Rating()
	r.Timestamp = rec.Timestamp()
	r.Blocked, r.BlockedReason = false, ""
	if rec.Blocked != nil {
		r.Blocked, r.BlockedReason = rec.Blocked.Blocked, rec.Blocked.Reason
	}
}

func clonePlaylist(items []PlaylistItem) []PlaylistItem {
	out := make([]PlaylistItem, len(items))
	copy(out, items)
	return out
}

func cloneTorrents(items []TorrentItem) []TorrentItem {
	out := make([]TorrentItem, len(items))
	copy(out, items)
	return out
}

// ReplacePlaylist stores a copy of items as the release playlist.
func (r *Release) ReplacePlaylist(items []PlaylistItem) { r.Playlist = clonePlaylist(items) }

// ReplaceTorrents stores a copy of items as the release torrent list.
func (r *Release) ReplaceTorrents(items []TorrentItem) { r.Torrents = cloneTorrents(items) }

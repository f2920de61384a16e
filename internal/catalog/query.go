// Package catalog filters, sorts, pages and searches cached releases.
//
// Queries run in memory over the slice returned by the release repository. Text filters are case-insensitive
// substring matches; list filters match when any (or, in [MatchAll] mode, every) requested value is contained
// in one of the release's values.
package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
)

// PageSize is the number of releases per result page.
const PageSize = 12

// SortField selects the ordering of query results.
type SortField int

const (
	SortTimestamp SortField = iota
	SortName
	SortYear
	SortRating
	SortStatus
	SortOriginalName
	SortSeason
)

var sortFieldNames = map[SortField]string{
	SortTimestamp:    "timestamp",
	SortName:         "name",
	SortYear:         "year",
	SortRating:       "rating",
	SortStatus:       "status",
	SortOriginalName: "original",
	SortSeason:       "season",
}

func (f SortField) String() string { return sortFieldNames[f] }

// ParseSortField parses a sort field name. The empty string selects [SortTimestamp].
func ParseSortField(s string) (SortField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortTimestamp, nil
	}
	for f, name := range sortFieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown sort field %q", shared.ErrInvalidArgument, s)
}

// Section restricts results to a subset of the catalog.
type Section int

const (
	SectionAll Section = iota
	SectionFavorites
	SectionNewReleases
	SectionNewEpisodes
	SectionNewTorrents
)

var sectionNames = map[Section]string{
	SectionAll:         "all",
	SectionFavorites:   "favorites",
	SectionNewReleases: "new",
	SectionNewEpisodes: "episodes",
	SectionNewTorrents: "torrents",
}

func (s Section) String() string { return sectionNames[s] }

// ParseSection parses a section name. The empty string selects [SectionAll].
func ParseSection(s string) (Section, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SectionAll, nil
	}
	for sec, name := range sectionNames {
		if name == s {
			return sec, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown section %q", shared.ErrInvalidArgument, s)
}

// MatchMode controls how list filters combine requested values.
type MatchMode int

const (
	MatchAny MatchMode = iota
	MatchAll
)

// Query describes a filtered, sorted page of releases. The zero value selects the first page of the whole
// catalog in ascending timestamp order.
type Query struct {
	Title       string
	FuzzyTitle  bool // match Title as a fuzzy subsequence of any name instead of a substring of the title
	Description string
	Type        string

	Genres     []string
	GenresMode MatchMode
	Voices     []string
	VoicesMode MatchMode

	Years    []string
	Statuses []string
	Seasons  []string

	Section    Section
	Sort       SortField
	Descending bool
	Page       int // 1-based; values below 1 select the first page
}

// Marks carries the per-user state that sections filter on. Either field may be nil.
type Marks struct {
	Favorites *models.Favorites
	Changes   *models.Changes
}

// Page is one page of query results.
type Page struct {
	Items    []*models.Release `json:"items" yaml:"items"`
	Page     int               `json:"page" yaml:"page"`
	PageSize int               `json:"page_size" yaml:"page_size"`
	Total    int               `json:"total" yaml:"total"`
	Pages    int               `json:"pages" yaml:"pages"`
}

// SplitList splits a comma separated filter value, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Filter returns the releases matching q, sorted. The input slice is not modified.
func Filter(releases []*models.Release, q Query, marks Marks) []*models.Release {
	var out []*models.Release
	for _, r := range releases {
		if q.matches(r, marks) {
			out = append(out, r)
		}
	}
	sortReleases(out, q.Sort, q.Descending)
	return out
}

// Run filters and sorts releases, then returns the page selected by q.Page.
func Run(releases []*models.Release, q Query, marks Marks) Page {
	matched := Filter(releases, q, marks)

	page := max(q.Page, 1)
	result := Page{
		Page:     page,
		PageSize: PageSize,
		Total:    len(matched),
		Pages:    (len(matched) + PageSize - 1) / PageSize,
		Items:    []*models.Release{},
	}

	start := (page - 1) * PageSize
	if start >= len(matched) {
		return result
	}
	end := min(start+PageSize, len(matched))
	result.Items = matched[start:end]
	return result
}

func (q Query) matches(r *models.Release, marks Marks) bool {
	if q.Title != "" {
		if q.FuzzyTitle {
			if !fuzzyNameMatch(q.Title, r) {
				return false
			}
		} else if !containsFold(r.Title, q.Title) {
			return false
		}
	}
	if q.Description != "" && !containsFold(r.Description, q.Description) {
		return false
	}
	if q.Type != "" && !containsFold(r.Type, q.Type) {
		return false
	}

	if len(q.Years) > 0 && !matchList(q.Years, []string{normalizeYear(r.Year)}, MatchAny) {
		return false
	}
	if len(q.Statuses) > 0 && !matchList(q.Statuses, []string{r.Status}, MatchAny) {
		return false
	}
	if len(q.Seasons) > 0 && !matchList(q.Seasons, []string{r.Season}, MatchAny) {
		return false
	}
	if len(q.Genres) > 0 && !matchList(q.Genres, r.Genres, q.GenresMode) {
		return false
	}
	if len(q.Voices) > 0 && !matchList(q.Voices, r.Voices, q.VoicesMode) {
		return false
	}

	return inSection(q.Section, r.ID, marks)
}

func inSection(s Section, id int64, marks Marks) bool {
	switch s {
	case SectionFavorites:
		return marks.Favorites != nil && marks.Favorites.Contains(id)
	case SectionNewReleases:
		return marks.Changes != nil && slices.Contains(marks.Changes.NewReleases, id)
	case SectionNewEpisodes:
		if marks.Changes == nil {
			return false
		}
		_, ok := marks.Changes.NewOnlineSeries[id]
		return ok
	case SectionNewTorrents:
		if marks.Changes == nil {
			return false
		}
		_, count := marks.Changes.NewTorrents[id]
		_, sizes := marks.Changes.NewTorrentSeries[id]
		return count || sizes
	default:
		return true
	}
}

// matchList reports whether the requested values are contained in values, under mode.
func matchList(requested, values []string, mode MatchMode) bool {
	hits := 0
	for _, want := range requested {
		found := slices.ContainsFunc(values, func(v string) bool { return containsFold(v, want) })
		if found {
			hits++
			if mode == MatchAny {
				return true
			}
		}
	}
	return mode == MatchAll && hits == len(requested)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func fuzzyNameMatch(query string, r *models.Release) bool {
	query = shared.NormalizeTitle(query)
	if fuzzysearch.MatchNormalizedFold(query, r.Title) {
		return true
	}
	for _, name := range r.Names {
		if fuzzysearch.MatchNormalizedFold(query, name) {
			return true
		}
	}
	return false
}

// normalizeYear strips padding so " 2020" and "2020" compare equal; non-numeric years are kept as is.
func normalizeYear(year string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
		return strconv.Itoa(n)
	}
	return year
}

func yearValue(year string) int {
	n, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return 0
	}
	return n
}

func sortReleases(releases []*models.Release, field SortField, descending bool) {
	compare := func(a, b *models.Release) int {
		switch field {
		case SortName:
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortYear:
			return cmp.Compare(yearValue(a.Year), yearValue(b.Year))
		case SortRating:
			return cmp.Compare(a.Rating, b.Rating)
		case SortStatus:
			return cmp.Compare(strings.ToLower(a.Status), strings.ToLower(b.Status))
		case SortOriginalName:
			return cmp.Compare(strings.ToLower(a.OriginalName()), strings.ToLower(b.OriginalName()))
		case SortSeason:
			return cmp.Compare(strings.ToLower(a.Season), strings.ToLower(b.Season))
		default:
			return cmp.Compare(a.Timestamp, b.Timestamp)
		}
	}

	slices.SortStableFunc(releases, func(a, b *models.Release) int {
		c := compare(a, b)
		if descending {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})
}

package catalog

import (
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
)

func fixture() []*models.Release {
	return []*models.Release{
		{
			ID: 1, Title: "Магическая битва", Names: []string{"Магическая битва", "Jujutsu Kaisen"},
			Description: "Проклятия и шаманы", Type: "ТВ (24 эп.)", Status: "Завершен", Year: "2020", Season: "осень",
			Genres: []string{"Экшен", "Сверхъестественное"}, Voices: []string{"Anzen", "Silv"}, Rating: 900, Timestamp: 300,
		},
		{
			ID: 2, Title: "Провожающая в последний путь Фрирен", Names: []string{"Провожающая в последний путь Фрирен", "Sousou no Frieren"},
			Description: "Эльфийка путешествует", Type: "ТВ (28 эп.)", Status: "В работе", Year: "2023", Season: "осень",
			Genres: []string{"Приключения", "Фэнтези", "Драма"}, Voices: []string{"Silv", "Hekomi"}, Rating: 1200, Timestamp: 500,
		},
		{
			ID: 3, Title: "Атака титанов", Names: []string{"Атака титанов", "Shingeki no Kyojin"},
			Description: "Стены и титаны", Type: "ТВ (25 эп.)", Status: "Завершен", Year: "2013", Season: "весна",
			Genres: []string{"Экшен", "Драма", "Фэнтези"}, Voices: []string{"Anzen"}, Rating: 1500, Timestamp: 100,
		},
		{
			ID: 4, Title: "Ковбой Бибоп: Фильм", Names: []string{"Ковбой Бибоп: Фильм", "Cowboy Bebop: Tengoku no Tobira"},
			Description: "Фильм", Type: "Фильм", Status: "Завершен", Year: "2001", Season: "лето",
			Genres: []string{"Экшен"}, Voices: []string{"Hekomi"}, Rating: 300, Timestamp: 200,
		},
	}
}

func ids(releases []*models.Release) []int64 {
	out := make([]int64, len(releases))
	for i, r := range releases {
		out[i] = r.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	releases := fixture()

	tests := []struct {
		name  string
		query Query
		marks Marks
		want  []int64
	}{
		{name: "Zero query returns everything by timestamp", want: []int64{3, 4, 1, 2}},
		{name: "Title is case insensitive", query: Query{Title: "АТАКА"}, want: []int64{3}},
		{name: "Title substring only matches title", query: Query{Title: "Frieren"}, want: nil},
		{name: "Fuzzy title matches any name", query: Query{Title: "frieren", FuzzyTitle: true}, want: []int64{2}},
		{name: "Fuzzy title matches subsequence", query: Query{Title: "jjk", FuzzyTitle: true}, want: []int64{1}},
		{name: "Description", query: Query{Description: "титаны"}, want: []int64{3}},
		{name: "Type", query: Query{Type: "фильм"}, want: []int64{4}},
		{name: "Years any", query: Query{Years: []string{"2020", "2023"}}, want: []int64{1, 2}},
		{name: "Statuses", query: Query{Statuses: []string{"в работе"}}, want: []int64{2}},
		{name: "Seasons any", query: Query{Seasons: []string{"весна", "лето"}}, want: []int64{3, 4}},
		{name: "Genres any", query: Query{Genres: []string{"драма", "приключения"}}, want: []int64{3, 2}},
		{
			name:  "Genres all",
			query: Query{Genres: []string{"экшен", "фэнтези"}, GenresMode: MatchAll},
			want:  []int64{3},
		},
		{name: "Voices any", query: Query{Voices: []string{"hekomi"}}, want: []int64{4, 2}},
		{
			name:  "Voices all",
			query: Query{Voices: []string{"anzen", "silv"}, VoicesMode: MatchAll},
			want:  []int64{1},
		},
		{
			name:  "Filters combine",
			query: Query{Genres: []string{"Экшен"}, Statuses: []string{"Завершен"}, Years: []string{"2013", "2001"}},
			want:  []int64{3, 4},
		},
		{
			name:  "Favorites section",
			query: Query{Section: SectionFavorites},
			marks: Marks{Favorites: &models.Favorites{Releases: []models.FavoriteItem{{ReleaseID: 2}, {ReleaseID: 4}}}},
			want:  []int64{4, 2},
		},
		{name: "Favorites section without favorites", query: Query{Section: SectionFavorites}, want: nil},
		{
			name:  "New releases section",
			query: Query{Section: SectionNewReleases},
			marks: Marks{Changes: &models.Changes{NewReleases: []int64{1}}},
			want:  []int64{1},
		},
		{
			name:  "New episodes section",
			query: Query{Section: SectionNewEpisodes},
			marks: Marks{Changes: &models.Changes{NewOnlineSeries: map[int64]int{2: 27}}},
			want:  []int64{2},
		},
		{
			name:  "New torrents section covers counts and sizes",
			query: Query{Section: SectionNewTorrents},
			marks: Marks{Changes: &models.Changes{
				NewTorrents:      map[int64]int{3: 1},
				NewTorrentSeries: map[int64]map[int64]string{1: {10: "1-24"}},
			}},
			want: []int64{3, 1},
		},
		{name: "New episodes section without ledger", query: Query{Section: SectionNewEpisodes}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(releases, tt.query, tt.marks))
			if !slices.Equal(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	releases := fixture()

	tests := []struct {
		field      SortField
		descending bool
		want       []int64
	}{
		{field: SortTimestamp, want: []int64{3, 4, 1, 2}},
		{field: SortTimestamp, descending: true, want: []int64{2, 1, 4, 3}},
		{field: SortName, want: []int64{3, 4, 1, 2}},
		{field: SortYear, want: []int64{4, 3, 1, 2}},
		{field: SortYear, descending: true, want: []int64{2, 1, 3, 4}},
		{field: SortRating, descending: true, want: []int64{3, 2, 1, 4}},
		{field: SortOriginalName, want: []int64{4, 1, 3, 2}},
		{field: SortSeason, want: []int64{3, 4, 1, 2}},
		{field: SortStatus, want: []int64{2, 1, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			got := ids(Filter(releases, Query{Sort: tt.field, Descending: tt.descending}, Marks{}))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("Input is not reordered", func(t *testing.T) {
		Filter(releases, Query{Sort: SortRating}, Marks{})
		if got := ids(releases); !slices.Equal(got, []int64{1, 2, 3, 4}) {
			t.Errorf("input slice was modified: %v", got)
		}
	})
}

func TestRun(t *testing.T) {
	var releases []*models.Release
	for i := range 30 {
		releases = append(releases, &models.Release{ID: int64(i + 1), Timestamp: int64(i)})
	}

	t.Run("First page", func(t *testing.T) {
		page := Run(releases, Query{}, Marks{})
		if page.Page != 1 || page.Total != 30 || page.Pages != 3 || len(page.Items) != PageSize {
			t.Errorf("unexpected page %+v", page)
		}
		if page.Items[0].ID != 1 {
			t.Errorf("expected first item 1, got %d", page.Items[0].ID)
		}
	})

	t.Run("Last partial page", func(t *testing.T) {
		page := Run(releases, Query{Page: 3}, Marks{})
		if len(page.Items) != 6 || page.Items[0].ID != 25 {
			t.Errorf("unexpected page %+v", ids(page.Items))
		}
	})

	t.Run("Past the end is empty", func(t *testing.T) {
		page := Run(releases, Query{Page: 9}, Marks{})
		if page.Items == nil || len(page.Items) != 0 || page.Total != 30 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("Page below one is first page", func(t *testing.T) {
		if page := Run(releases, Query{Page: -2}, Marks{}); page.Page != 1 {
			t.Errorf("expected page 1, got %d", page.Page)
		}
	})

	t.Run("Empty catalog", func(t *testing.T) {
		page := Run(nil, Query{}, Marks{})
		if page.Total != 0 || page.Pages != 0 || len(page.Items) != 0 {
			t.Errorf("unexpected page %+v", page)
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("Sort fields", func(t *testing.T) {
		for field, name := range sortFieldNames {
			got, err := ParseSortField(" " + name + " ")
			if err != nil || got != field {
				t.Errorf("ParseSortField(%q) = %v, %v", name, got, err)
			}
		}
		if got, err := ParseSortField(""); err != nil || got != SortTimestamp {
			t.Errorf("expected default timestamp sort, got %v, %v", got, err)
		}
		if _, err := ParseSortField("popularity"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Sections", func(t *testing.T) {
		for section, name := range sectionNames {
			got, err := ParseSection(name)
			if err != nil || got != section {
				t.Errorf("ParseSection(%q) = %v, %v", name, got, err)
			}
		}
		if _, err := ParseSection("schedule"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Split list", func(t *testing.T) {
		got := SplitList(" 2020, ,2021,")
		if !slices.Equal(got, []string{"2020", "2021"}) {
			t.Errorf("unexpected split %v", got)
		}
		if SplitList("") != nil {
			t.Error("expected nil for empty input")
		}
	})
}

func TestSearch(t *testing.T) {
	releases := fixture()

	t.Run("Matches any name", func(t *testing.T) {
		results := Search(releases, "Frieren", 0)
		if len(results) == 0 || results[0].Release.ID != 2 {
			t.Fatalf("expected release 2 first, got %+v", results)
		}
		if results[0].Name != "Sousou no Frieren" {
			t.Errorf("expected matched name in original case, got %q", results[0].Name)
		}
	})

	t.Run("Release appears once", func(t *testing.T) {
		results := Search(releases, "а", 0)
		seen := map[int64]bool{}
		for _, r := range results {
			if seen[r.Release.ID] {
				t.Errorf("release %d returned twice", r.Release.ID)
			}
			seen[r.Release.ID] = true
		}
	})

	t.Run("Limit", func(t *testing.T) {
		if results := Search(releases, "no", 1); len(results) != 1 {
			t.Errorf("expected 1 result, got %d", len(results))
		}
	})

	t.Run("Blank query", func(t *testing.T) {
		if results := Search(releases, "   ", 0); results != nil {
			t.Errorf("expected no results, got %+v", results)
		}
	})

	t.Run("No match", func(t *testing.T) {
		if results := Search(releases, "zzzzqqq", 0); len(results) != 0 {
			t.Errorf("expected no results, got %+v", results)
		}
	})
}

func TestSuggest(t *testing.T) {
	releases := fixture()

	got := Suggest(releases, "Jujutsu Kaisne", 2)
	if len(got) != 2 || got[0] != "Jujutsu Kaisen" {
		t.Errorf("expected closest name first, got %v", got)
	}

	if got := Suggest(releases, "", 3); got != nil {
		t.Errorf("expected nil for blank query, got %v", got)
	}
}

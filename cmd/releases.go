package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/librix/internal/catalog"
	"github.com/desertthunder/librix/internal/formatter"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/repositories"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/urfave/cli/v3"
)

// queryFromFlags builds a catalog query from the list flags.
func queryFromFlags(cmd *cli.Command) (catalog.Query, error) {
	sort, err := catalog.ParseSortField(cmd.String("sort"))
	if err != nil {
		return catalog.Query{}, err
	}
	section, err := catalog.ParseSection(cmd.String("section"))
	if err != nil {
		return catalog.Query{}, err
	}

	q := catalog.Query{
		Title:       strings.TrimSpace(cmd.String("title")),
		FuzzyTitle:  cmd.Bool("fuzzy"),
		Description: strings.TrimSpace(cmd.String("description")),
		Type:        strings.TrimSpace(cmd.String("type")),
		Genres:      catalog.SplitList(cmd.String("genres")),
		Voices:      catalog.SplitList(cmd.String("voices")),
		Years:       catalog.SplitList(cmd.String("years")),
		Statuses:    catalog.SplitList(cmd.String("statuses")),
		Seasons:     catalog.SplitList(cmd.String("seasons")),
		Section:     section,
		Sort:        sort,
		Descending:  cmd.Bool("desc"),
		Page:        cmd.Int("page"),
	}
	if cmd.Bool("genres-all") {
		q.GenresMode = catalog.MatchAll
	}
	if cmd.Bool("voices-all") {
		q.VoicesMode = catalog.MatchAll
	}
	if q.FuzzyTitle && q.Title == "" {
		return q, fmt.Errorf("%w: --fuzzy requires --title", shared.ErrInvalidFlag)
	}
	return q, nil
}

// marks loads the ledger and the stored favorites used by section filters.
// A missing ledger or favorites record leaves the field nil.
func (r *Runner) marks(ctx context.Context, db *sql.DB) (catalog.Marks, error) {
	var marks catalog.Marks

	ledger, err := repositories.NewChangesRepository(db).Get(ctx)
	switch {
	case err == nil:
		marks.Changes = ledger
	case !errors.Is(err, sql.ErrNoRows):
		return marks, fmt.Errorf("failed to load change ledger: %w", err)
	}

	favorites, err := repositories.NewFavoritesRepository(db).All(ctx)
	if err != nil {
		return marks, fmt.Errorf("failed to load favorites: %w", err)
	}
	if len(favorites) > 0 {
		if len(favorites) > 1 {
			r.logger.Warn("several favorites records stored, using the first", "user", favorites[0].UserID)
		}
		marks.Favorites = favorites[0]
	}
	return marks, nil
}

// ReleasesList filters, sorts and pages the cached catalog.
func (r *Runner) ReleasesList(ctx context.Context, cmd *cli.Command) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	releases, err := repositories.NewReleaseRepository(db).All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load releases: %w", err)
	}

	marks := catalog.Marks{}
	if q.Section != catalog.SectionAll {
		if marks, err = r.marks(ctx, db); err != nil {
			return err
		}
	}

	page := catalog.Run(releases, q, marks)
	r.logger.Debug("releases queried", "total", page.Total, "page", page.Page, "pages", page.Pages)

	var data []byte
	switch format {
	case formatter.FormatJSON, formatter.FormatYAML:
		data, err = formatter.Encode(format, page)
	case formatter.FormatText:
		data, err = formatter.ReleasesToText(page.Items)
		if err == nil && cmd.String("output") == "" {
			data = append(data, fmt.Sprintf("\nPage %d of %d (%d releases)\n", page.Page, max(page.Pages, 1), page.Total)...)
		}
	default:
		heading := fmt.Sprintf("Releases: %s (page %d of %d)", q.Section, page.Page, max(page.Pages, 1))
		data, err = formatter.FormatReleases(format, heading, page.Items)
	}
	if err != nil {
		return err
	}

	return r.emit(cmd.String("output"), data)
}

// ReleasesSearch ranks cached releases by fuzzy name match, suggesting close names when nothing matches.
func (r *Runner) ReleasesSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	repo, err := r.releaseRepository()
	if err != nil {
		return err
	}
	releases, err := repo.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load releases: %w", err)
	}

	limit := cmd.Int("limit")
	results := catalog.Search(releases, query, limit)

	if cmd.Bool("json") {
		if results == nil {
			results = []catalog.Result{}
		}
		return r.writeJSON(results, true)
	}

	if len(results) == 0 {
		r.writePlain("No releases match %q\n", query)
		if suggestions := catalog.Suggest(releases, query, 3); len(suggestions) > 0 {
			r.writePlain("Did you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q", query))
	for _, res := range results {
		if res.Name != res.Release.Title {
			r.writePlain("[%d] %s (%s)\n", res.Release.ID, res.Release.Title, res.Name)
			continue
		}
		r.writePlain("[%d] %s\n", res.Release.ID, res.Release.Title)
	}
	return nil
}

// ReleasesShow prints one cached release.
func (r *Runner) ReleasesShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.releaseRepository()
	if err != nil {
		return err
	}

	release, err := repo.Get(ctx, cmd.Int64("id"))
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case formatter.FormatText:
		data = formatter.ReleaseDetail(release)
	case formatter.FormatJSON, formatter.FormatYAML:
		data, err = formatter.Encode(format, release)
	default:
		data, err = formatter.FormatReleases(format, release.Title, []*models.Release{release})
	}
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

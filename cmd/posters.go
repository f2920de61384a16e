package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/desertthunder/librix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PostersFetch downloads the posters of cached releases that are missing from the file cache.
func (r *Runner) PostersFetch(ctx context.Context, cmd *cli.Command) error {
	if r.posters == nil {
		return fmt.Errorf("%w: poster source not initialized", shared.ErrServiceUnavailable)
	}

	repo, err := r.releaseRepository()
	if err != nil {
		return err
	}
	files, err := r.fileCache()
	if err != nil {
		return err
	}

	releases, err := repo.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load releases: %w", err)
	}

	workers := r.config.Cache.Workers
	if cmd.IsSet("workers") {
		workers = cmd.Int("workers")
	}
	if rate := cmd.Float("rate"); rate <= 0 {
		return fmt.Errorf("%w: --rate must be positive", shared.ErrInvalidFlag)
	}

	asJSON := cmd.Bool("json")
	progressCh, stop := r.progressPrinter(asJSON)
	fetcher := tasks.NewPosterFetcher(r.posters, files, r.logger)
	result, err := fetcher.Fetch(ctx, progressCh, releases, tasks.PosterFetchOpts{
		NumWorkers: workers,
		RateLimit:  cmd.Float("rate"),
		Force:      cmd.Bool("force"),
	})
	stop()
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(result, true)
	}

	r.writePlainln("Posters: %d total | %d fetched | %d cached | %d failed",
		result.Total, result.Fetched, result.Skipped, result.Failed)
	for _, f := range result.Failures {
		r.writePlain("  ✗ [%d] %s: %s\n", f.ReleaseID, f.Poster, f.Error)
	}
	return nil
}

// PostersStatus reports how many posters are cached against the cached release count.
func (r *Runner) PostersStatus(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.releaseRepository()
	if err != nil {
		return err
	}
	files, err := r.fileCache()
	if err != nil {
		return err
	}

	releases, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	posters, err := files.Count(models.PosterKind)
	if err != nil {
		return fmt.Errorf("failed to count posters: %w", err)
	}

	r.writePlainHeader("Poster cache")
	r.writePlain("Path:     %s\n", r.cachePathLabel())
	r.writePlain("Releases: %d\n", releases)
	r.writePlain("Posters:  %d\n", posters)
	return nil
}

func (r *Runner) cachePathLabel() string {
	if r.config.Cache.Path == "" {
		return "(memory)"
	}
	return r.config.Cache.Path
}

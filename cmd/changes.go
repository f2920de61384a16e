package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/librix/internal/formatter"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/urfave/cli/v3"
)

// ChangesShow renders the pending ledger with the cached release of every entry.
func (r *Runner) ChangesShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	changesRepo, err := r.changesRepository()
	if err != nil {
		return err
	}
	releaseRepo, err := r.releaseRepository()
	if err != nil {
		return err
	}

	ledger, err := changesRepo.Get(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		ledger = models.NewChanges("")
	} else if err != nil {
		return fmt.Errorf("failed to load change ledger: %w", err)
	}

	found, err := releaseRepo.GetMany(ctx, ledger.ReleaseIDs())
	if err != nil {
		return fmt.Errorf("failed to load releases: %w", err)
	}
	releases := make(map[int64]*models.Release, len(found))
	for _, rel := range found {
		releases[rel.ID] = rel
	}

	data, err := formatter.FormatChanges(format, formatter.NewChangesReport(ledger, releases))
	if err != nil {
		return err
	}
	return r.emit(cmd.String("output"), data)
}

// ChangesAck clears the selected parts of the ledger.
func (r *Runner) ChangesAck(ctx context.Context, cmd *cli.Command) error {
	apply, err := acknowledgement(cmd)
	if err != nil {
		return err
	}

	repo, err := r.changesRepository()
	if err != nil {
		return err
	}

	ledger, err := repo.LoadOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("failed to load change ledger: %w", err)
	}

	before := ledger.Clone()
	apply(ledger)
	if ledger.Equal(before) {
		r.writePlain("Nothing to acknowledge\n")
		return nil
	}

	if err := repo.Update(ctx, ledger); err != nil {
		return fmt.Errorf("failed to save change ledger: %w", err)
	}

	s := ledger.Summary()
	r.writePlain("✓ Ledger updated (version %d): %d new releases, %d new episodes, %d new torrents, %d updated torrents remain\n",
		ledger.Version, s.NewReleases, s.NewOnlineSeries, s.NewTorrents, s.NewTorrentSeries)
	return nil
}

// acknowledgement turns the ack flags into one ledger mutation.
func acknowledgement(cmd *cli.Command) (func(*models.Changes), error) {
	var steps []func(*models.Changes)

	if cmd.Bool("all") {
		steps = append(steps, (*models.Changes).Reset)
	}
	if cmd.Bool("releases") {
		steps = append(steps, (*models.Changes).AcknowledgeNewReleases)
	}

	for _, f := range []struct {
		name string
		fn   func(*models.Changes, int64)
	}{
		{"release", (*models.Changes).AcknowledgeRelease},
		{"episodes", (*models.Changes).AcknowledgeEpisodes},
		{"torrents", (*models.Changes).AcknowledgeTorrents},
		{"torrent-series", (*models.Changes).AcknowledgeTorrentSeries},
	} {
		if !cmd.IsSet(f.name) {
			continue
		}
		id := cmd.Int64(f.name)
		if id <= 0 {
			return nil, fmt.Errorf("%w: --%s must be a positive release id", shared.ErrInvalidFlag, f.name)
		}
		fn := f.fn
		steps = append(steps, func(c *models.Changes) { fn(c, id) })
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: choose --all, --releases, --release, --episodes, --torrents or --torrent-series",
			shared.ErrMissingArgument)
	}

	return func(c *models.Changes) {
		for _, step := range steps {
			step(c)
		}
	}, nil
}

// emit writes data to path when set, or to the runner's output.
func (r *Runner) emit(path string, data []byte) error {
	if path == "" {
		return r.writeBytes(data)
	}

	written, err := formatter.WriteExport(path, data)
	if err != nil {
		return err
	}
	r.logger.Info("export written", "path", written, "bytes", len(data))
	r.writePlain("✓ Written to %s\n", written)
	return nil
}

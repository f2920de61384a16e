package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
)

// ChangesRepository persists the singleton [models.Changes] ledger.
//
// Writes are compare-and-swap on the version column, so a ledger loaded before another writer saved cannot overwrite it.
type ChangesRepository struct {
	db *sql.DB
}

// NewChangesRepository creates a new [ChangesRepository] with the given database connection
func NewChangesRepository(db *sql.DB) *ChangesRepository {
	return &ChangesRepository{db: db}
}

// Get returns the ledger. It wraps [sql.ErrNoRows] when the ledger was never created.
func (r *ChangesRepository) Get(ctx context.Context) (*models.Changes, error) {
	query := `
		SELECT id, version, new_releases, new_online_series, new_torrents, new_torrent_series, updated_at
		FROM changes
		WHERE singleton = 1
	`

	var (
		c                                         models.Changes
		releases, onlineSeries, torrents, tSeries string
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&c.ID, &c.Version, &releases, &onlineSeries, &torrents, &tSeries, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("changes not created: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}

	for _, col := range []struct {
		raw  string
		dest any
	}{
		{releases, &c.NewReleases},
		{onlineSeries, &c.NewOnlineSeries},
		{torrents, &c.NewTorrents},
		{tSeries, &c.NewTorrentSeries},
	} {
		if err := decodeJSON(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("changes: %w", err)
		}
	}

	// Clone normalizes nil collections left by empty columns.
	return c.Clone(), nil
}

// LoadOrCreate returns the ledger, creating and persisting an empty one on first use.
//
// Concurrent first calls converge on a single row: the insert is ignored when another caller won the race.
func (r *ChangesRepository) LoadOrCreate(ctx context.Context) (*models.Changes, error) {
	c, err := r.Get(ctx)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	fresh := models.NewChanges(shared.GenerateID())
	args, err := changesArgs(fresh)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT OR IGNORE INTO changes (new_releases, new_online_series, new_torrents, new_torrent_series, updated_at, id, version)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`
	if _, err := r.db.ExecContext(ctx, query, append(args, time.Now(), fresh.ID)...); err != nil {
		return nil, fmt.Errorf("failed to create changes: %w", err)
	}

	return r.Get(ctx)
}

// Update writes c if the stored version still equals c.Version, then increments c.Version.
//
// Returns [shared.ErrStaleChanges] when the stored ledger moved on.
func (r *ChangesRepository) Update(ctx context.Context, c *models.Changes) error {
	args, err := changesArgs(c)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE changes
		SET new_releases = ?, new_online_series = ?, new_torrents = ?, new_torrent_series = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query, append(args, now, c.ID, c.Version)...)
	if err != nil {
		return fmt.Errorf("failed to update changes: %w", err)
	}
	if err := expectOne(result, fmt.Errorf("%w: id %s at version %d", shared.ErrStaleChanges, c.ID, c.Version)); err != nil {
		return err
	}

	c.Version++
	c.UpdatedAt = now
	return nil
}

func changesArgs(c *models.Changes) ([]any, error) {
	args := make([]any, 0, 7)
	for _, v := range []any{c.NewReleases, c.NewOnlineSeries, c.NewTorrents, c.NewTorrentSeries} {
		encoded, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		args = append(args, encoded)
	}
	return args, nil
}

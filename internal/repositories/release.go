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

var _ models.Collection[*models.Release] = (*ReleaseRepository)(nil)

const releaseColumns = `id, code, title, names, description, type, status, series, poster, year, season,
	genres, voices, rating, timestamp, blocked, blocked_reason, playlist, torrents, created_at, updated_at`

// ReleaseRepository implements [models.Collection] for cached [models.Release] records.
type ReleaseRepository struct {
	db *sql.DB
}

// NewReleaseRepository creates a new [ReleaseRepository] with the given database connection
func NewReleaseRepository(db *sql.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// All returns every cached release ordered by id.
func (r *ReleaseRepository) All(ctx context.Context) ([]*models.Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}
	defer rows.Close()

	var releases []*models.Release
	for rows.Next() {
		release, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return releases, nil
}

// Find returns the releases accepted by match.
func (r *ReleaseRepository) Find(ctx context.Context, match func(*models.Release) bool) ([]*models.Release, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var found []*models.Release
	for _, release := range all {
		if match(release) {
			found = append(found, release)
		}
	}
	return found, nil
}

// Get retrieves a release by id.
func (r *ReleaseRepository) Get(ctx context.Context, id int64) (*models.Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE id = ?`

	release, err := scanRelease(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrReleaseNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// GetMany retrieves the releases with the given ids, skipping unknown ids.
func (r *ReleaseRepository) GetMany(ctx context.Context, ids []int64) ([]*models.Release, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.Find(ctx, func(release *models.Release) bool {
		_, ok := want[release.ID]
		return ok
	})
}

// Count returns the number of cached releases.
func (r *ReleaseRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM releases").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count releases: %w", err)
	}
	return n, nil
}

// Add inserts a single release.
func (r *ReleaseRepository) Add(ctx context.Context, release *models.Release) error {
	return r.AddRange(ctx, []*models.Release{release})
}

// AddRange inserts releases in one transaction. Either every release is stored or none is.
func (r *ReleaseRepository) AddRange(ctx context.Context, releases []*models.Release) error {
	if len(releases) == 0 {
		return nil
	}

	query := `INSERT INTO releases (` + releaseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, release := range releases {
		if release.ID <= 0 {
			return fmt.Errorf("%w: release id %d", shared.ErrInvalidInput, release.ID)
		}
	}

	now := time.Now()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, release := range releases {
			args, err := releaseArgs(release)
			if err != nil {
				return err
			}
			args = append(args, now, now)

			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert release %d: %w", release.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, release := range releases {
		release.CreatedAt, release.UpdatedAt = now, now
	}
	return nil
}

// Update replaces a stored release.
func (r *ReleaseRepository) Update(ctx context.Context, release *models.Release) error {
	return r.UpdateRange(ctx, []*models.Release{release})
}

// UpdateRange replaces releases in one transaction. A missing release aborts the whole batch.
func (r *ReleaseRepository) UpdateRange(ctx context.Context, releases []*models.Release) error {
	if len(releases) == 0 {
		return nil
	}

	query := `
		UPDATE releases
		SET code = ?, title = ?, names = ?, description = ?, type = ?, status = ?, series = ?, poster = ?,
			year = ?, season = ?, genres = ?, voices = ?, rating = ?, timestamp = ?, blocked = ?,
			blocked_reason = ?, playlist = ?, torrents = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare update: %w", err)
		}
		defer stmt.Close()

		for _, release := range releases {
			args, err := releaseArgs(release)
			if err != nil {
				return err
			}
			args = append(args[1:], now, release.ID)

			result, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("failed to update release %d: %w", release.ID, err)
			}
			if err := expectOne(result, fmt.Errorf("%w: %d", shared.ErrReleaseNotFound, release.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, release := range releases {
		release.UpdatedAt = now
	}
	return nil
}

// releaseArgs returns the column values of release in [releaseColumns] order, without the timestamps.
func releaseArgs(release *models.Release) ([]any, error) {
	names, err := encodeJSON(release.Names)
	if err != nil {
		return nil, err
	}
	genres, err := encodeJSON(release.Genres)
	if err != nil {
		return nil, err
	}
	voices, err := encodeJSON(release.Voices)
	if err != nil {
		return nil, err
	}
	playlist, err := encodeJSON(release.Playlist)
	if err != nil {
		return nil, err
	}
	torrents, err := encodeJSON(release.Torrents)
	if err != nil {
		return nil, err
	}

	return []any{
		release.ID, release.Code, release.Title, names, release.Description, release.Type, release.Status,
		release.Series, release.Poster, release.Year, release.Season, genres, voices, release.Rating,
		release.Timestamp, release.Blocked, release.BlockedReason, playlist, torrents,
	}, nil
}

func scanRelease(row rowScanner) (*models.Release, error) {
	var (
		release                                  models.Release
		names, genres, voices, playlist, torrent string
	)

	err := row.Scan(
		&release.ID, &release.Code, &release.Title, &names, &release.Description, &release.Type,
		&release.Status, &release.Series, &release.Poster, &release.Year, &release.Season, &genres,
		&voices, &release.Rating, &release.Timestamp, &release.Blocked, &release.BlockedReason,
		&playlist, &torrent, &release.CreatedAt, &release.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan release: %w", err)
	}

	for _, col := range []struct {
		raw  string
		dest any
	}{
		{names, &release.Names},
		{genres, &release.Genres},
		{voices, &release.Voices},
		{playlist, &release.Playlist},
		{torrent, &release.Torrents},
	} {
		if err := decodeJSON(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("release %d: %w", release.ID, err)
		}
	}
	return &release, nil
}

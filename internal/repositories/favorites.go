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

var _ models.Collection[*models.Favorites] = (*FavoritesRepository)(nil)

// FavoritesRepository implements [models.Collection] for per-user [models.Favorites].
type FavoritesRepository struct {
	db *sql.DB
}

// NewFavoritesRepository creates a new [FavoritesRepository] with the given database connection
func NewFavoritesRepository(db *sql.DB) *FavoritesRepository {
	return &FavoritesRepository{db: db}
}

// All returns every favorites record.
func (r *FavoritesRepository) All(ctx context.Context) ([]*models.Favorites, error) {
	query := `
		SELECT id, user_id, login, releases, created_at, updated_at
		FROM favorites
		ORDER BY user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var records []*models.Favorites
	for rows.Next() {
		f, err := scanFavorites(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Find returns the records accepted by match.
func (r *FavoritesRepository) Find(ctx context.Context, match func(*models.Favorites) bool) ([]*models.Favorites, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var found []*models.Favorites
	for _, f := range all {
		if match(f) {
			found = append(found, f)
		}
	}
	return found, nil
}

// ForUser returns the record of userID, or nil when the user has none.
func (r *FavoritesRepository) ForUser(ctx context.Context, userID int64) (*models.Favorites, error) {
	query := `
		SELECT id, user_id, login, releases, created_at, updated_at
		FROM favorites
		WHERE user_id = ?
	`

	f, err := scanFavorites(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// Add inserts a record, generating its id when empty.
func (r *FavoritesRepository) Add(ctx context.Context, f *models.Favorites) error {
	return r.AddRange(ctx, []*models.Favorites{f})
}

// AddRange inserts records in one transaction. Generated ids and timestamps are written back only once the
// transaction commits.
func (r *FavoritesRepository) AddRange(ctx context.Context, records []*models.Favorites) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO favorites (id, user_id, login, releases, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	ids := make([]string, len(records))
	for i, f := range records {
		if f.UserID <= 0 {
			return fmt.Errorf("%w: favorites user id %d", shared.ErrInvalidInput, f.UserID)
		}
		ids[i] = f.ID
		if ids[i] == "" {
			ids[i] = shared.GenerateID()
		}
	}

	now := time.Now()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, f := range records {
			releases, err := encodeJSON(f.Releases)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, query, ids[i], f.UserID, f.Login, releases, now, now); err != nil {
				return fmt.Errorf("failed to insert favorites for user %d: %w", f.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, f := range records {
		f.ID = ids[i]
		f.CreatedAt, f.UpdatedAt = now, now
	}
	return nil
}

// Update replaces the stored record, including its release list.
func (r *FavoritesRepository) Update(ctx context.Context, f *models.Favorites) error {
	return r.UpdateRange(ctx, []*models.Favorites{f})
}

// UpdateRange replaces records in one transaction.
func (r *FavoritesRepository) UpdateRange(ctx context.Context, records []*models.Favorites) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		UPDATE favorites
		SET user_id = ?, login = ?, releases = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, f := range records {
			releases, err := encodeJSON(f.Releases)
			if err != nil {
				return err
			}

			result, err := tx.ExecContext(ctx, query, f.UserID, f.Login, releases, now, f.ID)
			if err != nil {
				return fmt.Errorf("failed to update favorites: %w", err)
			}
			if err := expectOne(result, fmt.Errorf("favorites not found: %s", f.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range records {
		f.UpdatedAt = now
	}
	return nil
}

func scanFavorites(row rowScanner) (*models.Favorites, error) {
	var (
		f        models.Favorites
		releases string
	)

	err := row.Scan(&f.ID, &f.UserID, &f.Login, &releases, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorites: %w", err)
	}

	if err := decodeJSON(releases, &f.Releases); err != nil {
		return nil, fmt.Errorf("favorites %s: %w", f.ID, err)
	}
	return &f, nil
}

// package tasks implements catalog and favorites synchronization against the local cache.
//
// The core abstraction is Synchronizer, which reconciles the remote catalog with cached releases and records structural
// deltas in the change ledger. Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librix/internal/events"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/services"
	"github.com/desertthunder/librix/internal/shared"
)

// DefaultPageSize is the number of releases requested per catalog cycle.
const DefaultPageSize = 2000

// ChangesStore loads and saves the singleton change ledger.
type ChangesStore interface {
	LoadOrCreate(ctx context.Context) (*models.Changes, error)
	Update(ctx context.Context, c *models.Changes) error
}

// SynchronizerOpts holds the dependencies of a [Synchronizer].
type SynchronizerOpts struct {
	Catalog   services.Catalog
	Releases  models.Collection[*models.Release]
	Favorites models.Collection[*models.Favorites]
	Changes   ChangesStore
	Files     models.FileCache // optional; poster invalidation is skipped without one
	Notifier  events.Notifier  // optional
	Localizer *events.Localizer
	Logger    *log.Logger
	PageSize  int
}

// Synchronizer runs catalog and favorites synchronization cycles.
//
// It holds no locks: callers must not run two cycles of the same operation concurrently (see [Scheduler]).
type Synchronizer struct {
	catalog   services.Catalog
	releases  models.Collection[*models.Release]
	favorites models.Collection[*models.Favorites]
	changes   ChangesStore
	files     models.FileCache
	notifier  events.Notifier
	localizer *events.Localizer
	logger    *log.Logger
	pageSize  int
}

// NewSynchronizer creates a new Synchronizer with the provided dependencies.
func NewSynchronizer(opts SynchronizerOpts) *Synchronizer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Localizer == nil {
		opts.Localizer = events.NewLocalizer("")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Synchronizer{
		catalog:   opts.Catalog,
		releases:  opts.Releases,
		favorites: opts.Favorites,
		changes:   opts.Changes,
		files:     opts.Files,
		notifier:  opts.Notifier,
		localizer: opts.Localizer,
		logger:    opts.Logger,
		pageSize:  opts.PageSize,
	}
}

// CatalogResult summarizes one catalog cycle.
type CatalogResult struct {
	Fetched        int                   `json:"fetched"`
	Added          int                   `json:"added"`
	Updated        int                   `json:"updated"`
	InitialImport  bool                  `json:"initial_import"`
	LedgerChanged  bool                  `json:"ledger_changed"`
	PostersDropped int                   `json:"posters_dropped"`
	Pending        models.ChangesSummary `json:"pending"`
	Canceled       bool                  `json:"canceled"`
	Err            error                 `json:"-"`
}

// Succeeded reports whether the cycle committed all of its writes.
func (r *CatalogResult) Succeeded() bool { return r.Err == nil && !r.Canceled }

// FavoritesResult summarizes one favorites cycle.
type FavoritesResult struct {
	Skipped  bool  `json:"skipped"`
	UserID   int64 `json:"user_id,omitempty"`
	Releases int   `json:"releases"`
	Created  bool  `json:"created"`
	Err      error `json:"-"`
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

func (s *Synchronizer) publish(topic events.Topic, data any) {
	if s.notifier != nil {
		s.notifier.Publish(topic, data)
	}
}

// SynchronizeCatalog fetches the remote catalog, reconciles it with the cache and updates the change ledger.
//
// Failures are logged and announced as a user message; they never escape as errors, but are reported on the result.
// Cancellation before persisting starts aborts the cycle without side effects. Once persisting starts, the cycle runs to
// completion regardless of ctx.
func (s *Synchronizer) SynchronizeCatalog(ctx context.Context, progress chan<- ProgressUpdate) *CatalogResult {
	result := &CatalogResult{}
	logger := shared.WithLogger(s.logger, "operation", "catalog")

	if err := s.synchronizeCatalog(ctx, progress, logger, result); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			result.Canceled = true
			logger.Info("catalog synchronization canceled", "error", err)
			return result
		}

		result.Err = err
		logger.Error("catalog synchronization failed", "error", err)
		s.publish(events.TopicShowMessage, s.localizer.Message(events.KeyReleasesHeader, events.KeyReleasesFailure))
		return result
	}

	logger.Info("catalog synchronized",
		"fetched", result.Fetched,
		"added", result.Added,
		"updated", result.Updated,
		"initial", result.InitialImport,
		"ledger_changed", result.LedgerChanged,
	)
	sendProgress(progress, completedUpdate(result))
	s.publish(events.TopicReleasesSynchronized, nil)
	s.publish(events.TopicShowMessage, s.localizer.Message(events.KeyReleasesHeader, events.KeyReleasesSuccess))
	return result
}

func (s *Synchronizer) synchronizeCatalog(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, result *CatalogResult) error {
	sendProgress(progress, fetchCatalogUpdate(s.pageSize))
	records, err := s.catalog.FetchPage(ctx, 1, s.pageSize)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	result.Fetched = len(records)
	logger.Debug("catalog page fetched", "records", len(records))

	sendProgress(progress, loadCacheUpdate(len(records)))
	cachedList, err := s.releases.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cached releases: %w", err)
	}

	cached := make(map[int64]*models.Release, len(cachedList))
	for _, r := range cachedList {
		cached[r.ID] = r
	}
	wasEmpty := len(cached) == 0
	result.InitialImport = wasEmpty

	ledger, err := s.changes.LoadOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("failed to load change ledger: %w", err)
	}
	before := ledger.Clone()
	logger.Debug("cache loaded", "releases", len(cached), "initial", wasEmpty)

	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		additions []*models.Release
		updates   []*models.Release
		addedNow  = map[int64]bool{}
		updatedAt = map[int64]bool{}
	)

	for i, rec := range records {
		sendProgress(progress, reconcileUpdate(i+1, len(records), firstName(rec)))

		existing, found := cached[rec.ID]
		if !found {
			release := models.NewRelease(rec)
			cached[rec.ID] = release
			addedNow[rec.ID] = true
			additions = append(additions, release)
			if !wasEmpty {
				ledger.AddNewRelease(rec.ID)
			}
			continue
		}

		if addedNow[rec.ID] {
			// Repeated id within one page: refresh the pending addition without recording deltas.
			existing.Apply(rec)
			existing.Poster = rec.Poster
			existing.ReplacePlaylist(rec.Playlist)
			existing.ReplaceTorrents(rec.Torrents)
			continue
		}

		if s.reconcile(existing, rec, ledger, logger) {
			result.PostersDropped++
		}
		if !updatedAt[rec.ID] {
			updatedAt[rec.ID] = true
			updates = append(updates, existing)
		}
	}

	// Persisting runs to completion even if ctx is canceled from here on.
	persistCtx := context.WithoutCancel(ctx)

	sendProgress(progress, persistReleasesUpdate(len(additions), len(updates)))
	if len(additions) > 0 {
		if err := s.releases.AddRange(persistCtx, additions); err != nil {
			return fmt.Errorf("failed to add releases: %w", err)
		}
	}
	if len(updates) > 0 {
		if err := s.releases.UpdateRange(persistCtx, updates); err != nil {
			return fmt.Errorf("failed to update releases: %w", err)
		}
	}
	result.Added, result.Updated = len(additions), len(updates)

	result.LedgerChanged = !ledger.Equal(before)
	sendProgress(progress, persistChangesUpdate(result.LedgerChanged))
	if result.LedgerChanged {
		if err := s.changes.Update(persistCtx, ledger); err != nil {
			return fmt.Errorf("failed to save change ledger: %w", err)
		}
	}
	result.Pending = ledger.Summary()
	return nil
}

// reconcile applies rec onto the cached release and records structural deltas in ledger.
// It reports whether a cached poster was dropped.
func (s *Synchronizer) reconcile(release *models.Release, rec models.ReleaseRecord, ledger *models.Changes, logger *log.Logger) bool {
	release.Apply(rec)

	dropped := false
	if release.Poster != rec.Poster {
		release.Poster = rec.Poster
		dropped = s.invalidatePoster(release.ID, logger)
	}

	ledger.ObserveEpisodes(release.ID, len(release.Playlist), len(rec.Playlist))
	release.ReplacePlaylist(rec.Playlist)

	ledger.ObserveTorrents(release.ID, len(release.Torrents), len(rec.Torrents))
	if len(rec.Torrents) < len(release.Torrents) {
		logger.Debug("torrent list shrank", "release", release.ID, "cached", len(release.Torrents), "remote", len(rec.Torrents))
	}
	ledger.ObserveTorrentSizes(release.ID, release.Torrents, rec.Torrents)
	release.ReplaceTorrents(rec.Torrents)

	return dropped
}

// invalidatePoster deletes the cached poster of id if one exists. Cache failures are logged, not fatal.
func (s *Synchronizer) invalidatePoster(id int64, logger *log.Logger) bool {
	if s.files == nil {
		return false
	}

	exists, err := s.files.Exists(models.PosterKind, id)
	if err != nil {
		logger.Warn("failed to check cached poster", "release", id, "error", err)
		return false
	}
	if !exists {
		return false
	}

	if err := s.files.Delete(models.PosterKind, id); err != nil {
		logger.Warn("failed to delete cached poster", "release", id, "error", err)
		return false
	}
	logger.Debug("cached poster invalidated", "release", id)
	return true
}

// SynchronizeFavorites replaces the signed-in user's favorites record with the remote list.
//
// It is a no-op without a session. On fetch failure nothing is written and the failure is announced as a user message.
func (s *Synchronizer) SynchronizeFavorites(ctx context.Context, progress chan<- ProgressUpdate) *FavoritesResult {
	logger := shared.WithLogger(s.logger, "operation", "favorites")

	if !s.catalog.Authorized() {
		logger.Debug("favorites synchronization skipped: not authorized")
		return &FavoritesResult{Skipped: true}
	}

	result, err := s.synchronizeFavorites(ctx, progress)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Info("favorites synchronization canceled", "error", err)
			return &FavoritesResult{Err: err}
		}

		logger.Error("favorites synchronization failed", "error", err)
		s.publish(events.TopicShowMessage, s.localizer.Message(events.KeyFavoritesHeader, events.KeyFavoritesFailed))
		return &FavoritesResult{Err: err}
	}

	logger.Info("favorites synchronized", "user", result.UserID, "releases", result.Releases, "created", result.Created)
	s.publish(events.TopicFavoritesSynchronized, nil)
	return result
}

func (s *Synchronizer) synchronizeFavorites(ctx context.Context, progress chan<- ProgressUpdate) (*FavoritesResult, error) {
	sendProgress(progress, favoritesUpdate(1, 3, "Fetching favorites..."))
	items, err := s.catalog.FetchFavorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch favorites: %w", err)
	}

	sendProgress(progress, favoritesUpdate(2, 3, "Fetching current user..."))
	user, err := s.catalog.FetchCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := s.favorites.Find(ctx, func(f *models.Favorites) bool { return f.UserID == user.ID })
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}

	sendProgress(progress, favoritesUpdate(3, 3, fmt.Sprintf("Saving %d favorites...", len(items))))
	persistCtx := context.WithoutCancel(ctx)
	result := &FavoritesResult{UserID: user.ID, Releases: len(items)}

	if len(found) > 0 {
		record := found[0]
		record.Login = user.Login
		record.Releases = append([]models.FavoriteItem{}, items...)
		if err := s.favorites.Update(persistCtx, record); err != nil {
			return nil, fmt.Errorf("failed to update favorites: %w", err)
		}
		return result, nil
	}

	record := &models.Favorites{
		UserID:   user.ID,
		Login:    user.Login,
		Releases: append([]models.FavoriteItem{}, items...),
	}
	if err := s.favorites.Add(persistCtx, record); err != nil {
		return nil, fmt.Errorf("failed to add favorites: %w", err)
	}
	result.Created = true
	return result, nil
}

func firstName(rec models.ReleaseRecord) string {
	if len(rec.Names) > 0 {
		return rec.Names[0]
	}
	return fmt.Sprintf("release %d", rec.ID)
}

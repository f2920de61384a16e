package tasks

import (
	"context"
	"testing"

	"github.com/desertthunder/librix/internal/events"
	"github.com/desertthunder/librix/internal/filecache"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/repositories"
	"github.com/desertthunder/librix/internal/shared"
	tu "github.com/desertthunder/librix/internal/testing"
)

// TestSynchronizeCatalogWithStorage runs cycles against the SQLite repositories and the bbolt cache.
func TestSynchronizeCatalogWithStorage(t *testing.T) {
	ctx := context.Background()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	files, err := filecache.Open("")
	if err != nil {
		t.Fatalf("failed to open file cache: %v", err)
	}
	defer files.Close()

	releases := repositories.NewReleaseRepository(db)
	changes := repositories.NewChangesRepository(db)
	catalog := &tu.FakeCatalog{}
	bus := events.NewBus(nil)

	var synchronized int
	unsubscribe := bus.Subscribe(events.TopicReleasesSynchronized, func(events.Event) { synchronized++ })
	defer unsubscribe()

	s := NewSynchronizer(SynchronizerOpts{
		Catalog:   catalog,
		Releases:  releases,
		Favorites: repositories.NewFavoritesRepository(db),
		Changes:   changes,
		Files:     files,
		Notifier:  bus,
	})

	catalog.SetRecords(record(1, 12, models.TorrentItem{ID: 10, Series: "1-12", Size: 100}), record(2, 1))
	if r := s.SynchronizeCatalog(ctx, nil); !r.Succeeded() {
		t.Fatalf("initial import failed: %v", r.Err)
	}

	if err := files.Put(models.PosterKind, 1, []byte("old poster")); err != nil {
		t.Fatalf("failed to seed poster: %v", err)
	}

	updated := record(1, 13, models.TorrentItem{ID: 10, Series: "1-13", Size: 200})
	updated.Poster = "/posters/1-new.jpg"
	catalog.SetRecords(updated, record(2, 1), record(3, 1))

	result := s.SynchronizeCatalog(ctx, nil)
	if !result.Succeeded() {
		t.Fatalf("incremental cycle failed: %v", result.Err)
	}

	ledger, err := changes.Get(ctx)
	if err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	if len(ledger.NewReleases) != 1 || ledger.NewReleases[0] != 3 {
		t.Errorf("expected new release 3, got %v", ledger.NewReleases)
	}
	if ledger.NewOnlineSeries[1] != 12 {
		t.Errorf("expected episode watermark 12, got %v", ledger.NewOnlineSeries)
	}
	if ledger.NewTorrentSeries[1][10] != "1-12" {
		t.Errorf("expected torrent label 1-12, got %v", ledger.NewTorrentSeries)
	}
	if ledger.Version != 1 {
		t.Errorf("expected one ledger write, got version %d", ledger.Version)
	}

	if ok, _ := files.Exists(models.PosterKind, 1); ok {
		t.Error("expected stale poster to be deleted")
	}

	cached, err := releases.Get(ctx, 1)
	if err != nil {
		t.Fatalf("failed to load release: %v", err)
	}
	if len(cached.Playlist) != 13 || cached.Poster != "/posters/1-new.jpg" {
		t.Errorf("expected release to be reconciled, got %d episodes, poster %s", len(cached.Playlist), cached.Poster)
	}

	if count, _ := releases.Count(ctx); count != 3 {
		t.Errorf("expected 3 cached releases, got %d", count)
	}
	if synchronized != 2 {
		t.Errorf("expected 2 catalog-changed events, got %d", synchronized)
	}
}

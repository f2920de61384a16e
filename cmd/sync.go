package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/librix/internal/events"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/desertthunder/librix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// progressPrinter starts a goroutine that prints progress updates.
// The returned stop function closes the channel and waits for the printer to drain it.
func (r *Runner) progressPrinter(quiet bool) (chan<- tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.FetchCatalog, tasks.SyncFavorites:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Reconcile:
				r.logger.Debug(update.Message)
			case tasks.FetchPosters:
				r.writePlain("🖼  %s\n", update.Message)
			case tasks.Completed:
				r.writePlain("✓ %s\n", update.Message)
			default:
				r.writePlain("💾 %s\n", update.Message)
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

// SyncReleases runs one catalog cycle and prints its outcome.
func (r *Runner) SyncReleases(ctx context.Context, cmd *cli.Command) error {
	s, err := r.synchronizer()
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	if !asJSON {
		defer r.subscribeMessages()()
	}

	progressCh, stop := r.progressPrinter(asJSON)
	result := s.SynchronizeCatalog(ctx, progressCh)
	stop()

	if result.Canceled {
		return fmt.Errorf("catalog synchronization canceled: %w", context.Canceled)
	}
	if result.Err != nil {
		return result.Err
	}

	if asJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainln("Fetched: %d | Added: %d | Updated: %d", result.Fetched, result.Added, result.Updated)
	if result.InitialImport {
		r.writePlain("Initial import: no changes recorded\n")
	}
	if result.PostersDropped > 0 {
		r.writePlain("Posters invalidated: %d\n", result.PostersDropped)
	}
	p := result.Pending
	r.writePlain("Pending: %d new releases, %d new episodes, %d new torrents, %d updated torrents\n",
		p.NewReleases, p.NewOnlineSeries, p.NewTorrents, p.NewTorrentSeries)
	return nil
}

// SyncFavorites replaces the stored favorites of the signed-in user.
func (r *Runner) SyncFavorites(ctx context.Context, cmd *cli.Command) error {
	s, err := r.synchronizer()
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	if !asJSON {
		defer r.subscribeMessages()()
	}

	progressCh, stop := r.progressPrinter(asJSON)
	result := s.SynchronizeFavorites(ctx, progressCh)
	stop()

	if result.Err != nil {
		return result.Err
	}

	if asJSON {
		return r.writeJSON(result, true)
	}

	if result.Skipped {
		r.writePlain("Favorites skipped: no session token configured (set %s)\n", shared.EnvSessionToken)
		return nil
	}

	verb := "Updated"
	if result.Created {
		verb = "Created"
	}
	r.writePlain("✓ %s favorites of user %d: %d releases\n", verb, result.UserID, result.Releases)
	return nil
}

// SyncWatch runs scheduled cycles until the process receives an interrupt.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	s, err := r.synchronizer()
	if err != nil {
		return err
	}

	interval := r.config.Sync.Interval()
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", shared.ErrInvalidFlag)
	}

	favorites := r.config.Sync.Favorites
	if cmd.IsSet("favorites") {
		favorites = cmd.Bool("favorites")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defer r.subscribeMessages()()
	unsubscribe := r.bus.Subscribe(events.TopicReleasesSynchronized, func(e events.Event) {
		r.logger.Info("catalog cycle committed", "at", e.Timestamp.Format("15:04:05"))
	})
	defer unsubscribe()

	progressCh, stop := r.progressPrinter(false)
	defer stop()

	scheduler := tasks.NewScheduler(s, tasks.SchedulerOpts{
		Interval:  interval,
		Favorites: favorites,
		Progress:  progressCh,
		Logger:    r.logger,
	})

	r.writePlain("Watching catalog every %s (favorites: %t). Press Ctrl+C to stop.\n", interval, favorites)
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.writePlain("Stopped after %d cycles\n", scheduler.Cycles())
	return nil
}

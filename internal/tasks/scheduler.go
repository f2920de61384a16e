package tasks

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librix/internal/shared"
)

// DefaultInterval is the period between scheduled cycles.
const DefaultInterval = 30 * time.Minute

// SchedulerOpts configures a [Scheduler].
type SchedulerOpts struct {
	Interval  time.Duration
	Favorites bool // also synchronize favorites after each catalog cycle
	Progress  chan<- ProgressUpdate
	Logger    *log.Logger
}

// Scheduler runs synchronization cycles on an interval and guarantees at most one cycle in flight.
type Scheduler struct {
	synchronizer *Synchronizer
	interval     time.Duration
	favorites    bool
	progress     chan<- ProgressUpdate
	logger       *log.Logger

	running atomic.Bool
	wg      sync.WaitGroup
	cycles  atomic.Int64
}

// NewScheduler creates a scheduler around s.
func NewScheduler(s *Synchronizer, opts SchedulerOpts) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Scheduler{
		synchronizer: s,
		interval:     opts.Interval,
		favorites:    opts.Favorites,
		progress:     opts.Progress,
		logger:       opts.Logger,
	}
}

// Cycle is the outcome of one scheduled run.
type Cycle struct {
	Catalog   *CatalogResult
	Favorites *FavoritesResult
}

// RunOnce runs a single cycle now. It returns [shared.ErrSyncInFlight] when another cycle is still running.
func (s *Scheduler) RunOnce(ctx context.Context) (*Cycle, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, shared.ErrSyncInFlight
	}
	defer s.running.Store(false)

	s.cycles.Add(1)
	cycle := &Cycle{Catalog: s.synchronizer.SynchronizeCatalog(ctx, s.progress)}
	if s.favorites && !cycle.Catalog.Canceled {
		cycle.Favorites = s.synchronizer.SynchronizeFavorites(ctx, s.progress)
	}
	return cycle, nil
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Cycles returns the number of cycles started so far.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// Run starts a cycle immediately and then on every tick until ctx is canceled.
// A tick that arrives while a cycle is running is skipped. Run waits for the in-flight cycle before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.logger.Info("scheduler started", "interval", s.interval, "favorites", s.favorites)
	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if s.Running() {
		s.logger.Warn("previous cycle still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("cycle skipped", "error", err)
		}
	}()
}

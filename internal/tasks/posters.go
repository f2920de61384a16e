package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librix/internal/models"
	"golang.org/x/time/rate"
)

// PosterSource downloads poster images.
type PosterSource interface {
	DownloadPoster(ctx context.Context, poster string) ([]byte, error)
}

// PosterStore is a file cache that can also store entries.
type PosterStore interface {
	models.FileCache
	Put(kind models.FileKind, id int64, data []byte) error
}

// PosterFetchOpts contains configuration for poster prefetching.
type PosterFetchOpts struct {
	NumWorkers int     // Concurrent downloads (default: 4)
	RateLimit  float64 // Downloads per second (default: 5)
	Force      bool    // Download even when a poster is already cached
}

// PosterFailure records one poster that could not be cached.
type PosterFailure struct {
	ReleaseID int64  `json:"release_id"`
	Poster    string `json:"poster"`
	Error     string `json:"error"`
}

// PosterFetchResult summarizes a prefetch run.
type PosterFetchResult struct {
	Total    int             `json:"total"`
	Fetched  int             `json:"fetched"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Failures []PosterFailure `json:"failures,omitempty"`
}

type posterJob struct {
	id     int64
	poster string
}

type posterResult struct {
	job posterJob
	err error
}

// PosterFetcher caches release posters with a rate-limited worker pool.
type PosterFetcher struct {
	source PosterSource
	store  PosterStore
	logger *log.Logger
}

// NewPosterFetcher creates a PosterFetcher that downloads from source into store.
func NewPosterFetcher(source PosterSource, store PosterStore, logger *log.Logger) *PosterFetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PosterFetcher{source: source, store: store, logger: logger}
}

// Fetch downloads the posters of releases that are missing from the cache.
//
// Individual failures are counted on the result. The returned error is non-nil only when ctx ends the run early.
func (f *PosterFetcher) Fetch(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	releases []*models.Release,
	opts PosterFetchOpts,
) (*PosterFetchResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &PosterFetchResult{}
	var pending []posterJob
	for _, r := range releases {
		if r.Poster == "" {
			continue
		}
		result.Total++

		if !opts.Force {
			exists, err := f.store.Exists(models.PosterKind, r.ID)
			if err != nil {
				f.logger.Warn("failed to check cached poster", "release", r.ID, "error", err)
			} else if exists {
				result.Skipped++
				continue
			}
		}
		pending = append(pending, posterJob{id: r.ID, poster: r.Poster})
	}

	if len(pending) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan posterJob, len(pending))
	results := make(chan posterResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go f.worker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, job := range pending {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, PosterFailure{
				ReleaseID: res.job.id,
				Poster:    res.job.poster,
				Error:     res.err.Error(),
			})
			f.logger.Warn("failed to cache poster", "release", res.job.id, "error", res.err)
			sendProgress(prog, posterFailedUpdate(completed, len(pending), res.job.id, res.err))
			continue
		}

		result.Fetched++
		sendProgress(prog, posterFetchedUpdate(completed, len(pending), res.job.id))
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("poster fetch interrupted: %w", err)
	}
	return result, nil
}

// worker downloads and stores posters from the jobs channel.
func (f *PosterFetcher) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan posterJob,
	results chan<- posterResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := f.source.DownloadPoster(ctx, job.poster)
		if err == nil {
			err = f.store.Put(models.PosterKind, job.id, data)
		}
		results <- posterResult{job: job, err: err}
	}
}

// Package tasks reconciles the remote release catalog with the local cache and keeps the change ledger current.
//
// # Core Operations
//
// [Synchronizer] exposes two operations:
//
//  1. [Synchronizer.SynchronizeCatalog] : Full catalog reconciliation
//     - Fetches one page of releases from the remote catalog
//     - Adds unseen releases; when the cache was empty this is a silent initial import
//     - Reconciles known releases in place and records episode, torrent and torrent-size deltas
//     - Persists additions, then updates, then the ledger, and announces the outcome
//
//  2. [Synchronizer.SynchronizeFavorites] : Replace the signed-in user's favorites record
//     - Skipped without a session
//     - Writes nothing when either remote call fails
//
// Neither operation returns an error. Failures are logged, published as a localized user message
// and reported on the result value.
//
// # Change Ledger
//
// Deltas are watermarks: at most one pending expectation per release and dimension, keeping the first value seen.
// The merge rules live on [models.Changes]; this package only decides when to apply them.
//
// # Scheduling
//
// [Scheduler] runs cycles on an interval with single-flight semantics. A tick that arrives while a cycle
// is still running is skipped.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Poster Prefetch
//
// [PosterFetcher] fills the file cache with a rate-limited worker pool. Posters invalidated during
// reconciliation are downloaded again on the next prefetch.
package tasks

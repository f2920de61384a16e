package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchCatalog Phase = iota
	LoadCache
	Reconcile
	PersistReleases
	PersistChanges
	SyncFavorites
	FetchPosters
	Completed
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case LoadCache:
		return "load_cache"
	case Reconcile:
		return "reconcile"
	case PersistReleases:
		return "persist_releases"
	case PersistChanges:
		return "persist_changes"
	case SyncFavorites:
		return "sync_favorites"
	case FetchPosters:
		return "fetch_posters"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func fetchCatalogUpdate(pageSize int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching catalog page (up to %d releases)...", pageSize),
	}
}

func loadCacheUpdate(fetched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCache,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d releases, loading local cache...", fetched),
	}
}

func reconcileUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}

func persistReleasesUpdate(added, updated int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistReleases,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saving releases (%d new, %d updated)...", added, updated),
	}
}

func persistChangesUpdate(changed bool) ProgressUpdate {
	msg := "Ledger unchanged"
	if changed {
		msg = "Saving change ledger..."
	}
	return ProgressUpdate{
		Phase:   PersistChanges,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func completedUpdate(result *CatalogResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synchronized %d releases (%d new, %d updated)", result.Fetched, result.Added, result.Updated),
		Data:    result,
	}
}

func favoritesUpdate(step, total int, msg string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncFavorites,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func posterFetchedUpdate(step, total int, id int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPosters,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ poster %d", step, total, id),
	}
}

func posterFailedUpdate(step, total int, id int64, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPosters,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ poster %d: %v", step, total, id, err),
	}
}

// Package ui implements an interactive release browser using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [ReleaseListView] : Browse cached releases, newest first, with fuzzy filtering across every name
//  2. [DetailView] : Inspect one release and its pending ledger deltas
//  3. [SyncView] : Follow a catalog synchronization with a spinner and the current phase
//  4. [ResultView] : Display the cycle outcome and the pending change counts
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the synchronizer, providing non-blocking status reporting during a cycle.
//
// Rows carry ledger markers (NEW, +N ep, torrents). Marking a release as seen clears its deltas from the ledger.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, a, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

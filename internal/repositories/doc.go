// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [ReleaseRepository] : Cached releases keyed by release id, with batch insert and update
//   - [ChangesRepository] : The singleton change ledger, written with compare-and-swap on a version column
//   - [FavoritesRepository] : One favorites record per remote user
//
// Batch writes (AddRange, UpdateRange) run in a single transaction so a failed batch leaves no partial rows.
// List and map fields are stored as JSON text columns; nil collections are written as empty JSON values.
package repositories

// Package models defines domain entities and persistence interfaces for the librix catalog synchronizer.
//
// The package contains two categories of types:
//
// 1. Remote records: transient structs decoded from the catalog API
//   - [ReleaseRecord] : A release with its playlist and torrents as served remotely
//   - [User] : The signed-in account
//
// 2. Persistent entities: records kept in a [Collection]
//   - [Release] : Cached projection of a release, keyed by release id
//   - [Changes] : Singleton ledger of pending deltas (new releases, episodes, torrents, torrent sizes)
//   - [Favorites] : Favorite releases of one user, keyed by user id
//
// The ledger holds watermarks rather than history. An entry records the value observed when a change was first seen
// and is removed once the cache catches up, so repeated synchronization of an unchanged catalog leaves it untouched.
//
// [FileCache] is the narrow view of the poster store needed to invalidate stale images.
package models

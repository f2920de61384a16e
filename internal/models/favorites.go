package models

import (
	"strconv"
	"time"
)

// User is the identity of the signed-in account.
type User struct {
	ID     int64  `json:"id"`
	Login  string `json:"login"`
	Avatar string `json:"avatar"`
}

// FavoriteItem is a release the user marked as favorite.
type FavoriteItem struct {
	ReleaseID int64 `json:"release_id" yaml:"release_id"`
	Rating    int   `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Favorites is the per-user favorites record. Releases is always replaced wholesale.
type Favorites struct {
	ID        string         `json:"id" yaml:"id"`
	UserID    int64          `json:"user_id" yaml:"user_id"`
	Login     string         `json:"login" yaml:"login"`
	Releases  []FavoriteItem `json:"releases" yaml:"releases"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
}

var _ Entity = (*Favorites)(nil)

// Key returns the record id.
func (f *Favorites) Key() string {
	if f.ID == "" {
		return strconv.FormatInt(f.UserID, 10)
	}
	return f.ID
}

// Contains reports whether releaseID is among the favorites.
func (f *Favorites) Contains(releaseID int64) bool {
	for _, it := range f.Releases {
		if it.ReleaseID == releaseID {
			return true
		}
	}
	return false
}

// ReleaseIDs returns the favorite release ids in stored order.
func (f *Favorites) ReleaseIDs() []int64 {
	ids := make([]int64, len(f.Releases))
	for i, it := range f.Releases {
		ids[i] = it.ReleaseID
	}
	return ids
}

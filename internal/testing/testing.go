// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/librix/internal/events"
	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
)

// MemoryCollection is an in-memory [models.Collection].
//
// Entities are stored JSON-encoded so callers never share pointers with the store, like a real database.
// Batch writes are all-or-nothing. Set the *Err fields to inject failures.
type MemoryCollection[T models.Entity] struct {
	mu    sync.Mutex
	order []string
	data  map[string][]byte

	AllErr         error
	AddRangeErr    error
	UpdateRangeErr error

	AddRangeCalls    int
	UpdateRangeCalls int
}

var _ models.Collection[*models.Release] = (*MemoryCollection[*models.Release])(nil)

// NewMemoryCollection creates a collection seeded with items.
func NewMemoryCollection[T models.Entity](items ...T) *MemoryCollection[T] {
	c := &MemoryCollection[T]{data: map[string][]byte{}}
	if err := c.AddRange(context.Background(), items); err != nil {
		panic(err)
	}
	c.AddRangeCalls = 0
	return c
}

func (c *MemoryCollection[T]) All(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AllErr != nil {
		return nil, c.AllErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(c.order))
	for _, key := range c.order {
		var v T
		if err := json.Unmarshal(c.data[key], &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *MemoryCollection[T]) Find(ctx context.Context, match func(T) bool) ([]T, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	var found []T
	for _, v := range all {
		if match(v) {
			found = append(found, v)
		}
	}
	return found, nil
}

func (c *MemoryCollection[T]) Add(ctx context.Context, entity T) error {
	return c.AddRange(ctx, []T{entity})
}

func (c *MemoryCollection[T]) AddRange(ctx context.Context, entities []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.AddRangeCalls++
	if c.AddRangeErr != nil {
		return c.AddRangeErr
	}

	staged := map[string][]byte{}
	var keys []string
	for _, e := range entities {
		key := e.Key()
		if _, ok := c.data[key]; ok {
			return fmt.Errorf("duplicate key %s", key)
		}
		if _, ok := staged[key]; ok {
			return fmt.Errorf("duplicate key %s", key)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		staged[key] = data
		keys = append(keys, key)
	}

	for _, key := range keys {
		c.data[key] = staged[key]
		c.order = append(c.order, key)
	}
	return nil
}

func (c *MemoryCollection[T]) Update(ctx context.Context, entity T) error {
	return c.UpdateRange(ctx, []T{entity})
}

func (c *MemoryCollection[T]) UpdateRange(ctx context.Context, entities []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.UpdateRangeCalls++
	if c.UpdateRangeErr != nil {
		return c.UpdateRangeErr
	}

	staged := map[string][]byte{}
	for _, e := range entities {
		key := e.Key()
		if _, ok := c.data[key]; !ok {
			return fmt.Errorf("unknown key %s", key)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		staged[key] = data
	}

	for key, data := range staged {
		c.data[key] = data
	}
	return nil
}

// Len returns the number of stored entities.
func (c *MemoryCollection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// MemoryChanges is an in-memory ledger store with the same compare-and-swap semantics as the SQLite repository.
type MemoryChanges struct {
	mu     sync.Mutex
	stored *models.Changes

	LoadErr   error
	UpdateErr error

	UpdateCalls int
}

// NewMemoryChanges creates a store, optionally seeded with an existing ledger.
func NewMemoryChanges(seed *models.Changes) *MemoryChanges {
	m := &MemoryChanges{}
	if seed != nil {
		m.stored = seed.Clone()
	}
	return m
}

func (m *MemoryChanges) LoadOrCreate(ctx context.Context) (*models.Changes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.stored == nil {
		m.stored = models.NewChanges(shared.GenerateID())
	}
	return m.stored.Clone(), nil
}

func (m *MemoryChanges) Update(ctx context.Context, c *models.Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if m.stored == nil || m.stored.ID != c.ID || m.stored.Version != c.Version {
		return shared.ErrStaleChanges
	}

	c.Version++
	m.stored = c.Clone()
	return nil
}

// Stored returns a copy of the persisted ledger, or nil before creation.
func (m *MemoryChanges) Stored() *models.Changes {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil
	}
	return m.stored.Clone()
}

// FakeCatalog is a scripted [services.Catalog].
type FakeCatalog struct {
	mu sync.Mutex

	Records   []models.ReleaseRecord
	Favorites []models.FavoriteItem
	User      *models.User
	Session   bool

	FetchErr     error
	FavoritesErr error
	UserErr      error

	// Block, when set, makes FetchPage wait until it is closed or the context ends.
	Block chan struct{}

	FetchCalls     int
	FavoritesCalls int
	LastPageSize   int
}

// SetRecords replaces the catalog served by FetchPage.
func (f *FakeCatalog) SetRecords(records ...models.ReleaseRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records = records
}

func (f *FakeCatalog) FetchPage(ctx context.Context, page, pageSize int) ([]models.ReleaseRecord, error) {
	f.mu.Lock()
	f.FetchCalls++
	f.LastPageSize = pageSize
	block := f.Block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}

	start := (page - 1) * pageSize
	if start >= len(f.Records) {
		return []models.ReleaseRecord{}, nil
	}
	end := min(start+pageSize, len(f.Records))
	out := make([]models.ReleaseRecord, end-start)
	copy(out, f.Records[start:end])
	return out, nil
}

func (f *FakeCatalog) FetchFavorites(ctx context.Context) ([]models.FavoriteItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FavoritesCalls++
	if f.FavoritesErr != nil {
		return nil, f.FavoritesErr
	}
	return append([]models.FavoriteItem(nil), f.Favorites...), nil
}

func (f *FakeCatalog) FetchCurrentUser(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	if f.User == nil {
		return nil, shared.ErrNotAuthenticated
	}
	u := *f.User
	return &u, nil
}

func (f *FakeCatalog) Authorized() bool { return f.Session }

// RecordingFileCache is an in-memory file cache that records every call.
type RecordingFileCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	ExistsErr error
	DeleteErr error

	ExistsCalls []int64
	DeleteCalls []int64
}

// NewRecordingFileCache creates a cache holding a poster entry for each id.
func NewRecordingFileCache(posterIDs ...int64) *RecordingFileCache {
	c := &RecordingFileCache{entries: map[string][]byte{}}
	for _, id := range posterIDs {
		c.entries[fileKey(models.PosterKind, id)] = []byte("poster")
	}
	return c
}

func fileKey(kind models.FileKind, id int64) string { return fmt.Sprintf("%s/%d", kind, id) }

func (c *RecordingFileCache) Exists(kind models.FileKind, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ExistsCalls = append(c.ExistsCalls, id)
	if c.ExistsErr != nil {
		return false, c.ExistsErr
	}
	_, ok := c.entries[fileKey(kind, id)]
	return ok, nil
}

func (c *RecordingFileCache) Delete(kind models.FileKind, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DeleteCalls = append(c.DeleteCalls, id)
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	delete(c.entries, fileKey(kind, id))
	return nil
}

func (c *RecordingFileCache) Put(kind models.FileKind, id int64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fileKey(kind, id)] = append([]byte(nil), data...)
	return nil
}

// Has reports whether an entry is stored, without recording a call.
func (c *RecordingFileCache) Has(kind models.FileKind, id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[fileKey(kind, id)]
	return ok
}

// Published is one event captured by [RecordingNotifier].
type Published struct {
	Topic events.Topic
	Data  any
}

// RecordingNotifier captures published events in order.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []Published
}

func (n *RecordingNotifier) Publish(topic events.Topic, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, Published{Topic: topic, Data: data})
}

// Count returns how many events were published on topic.
func (n *RecordingNotifier) Count(topic events.Topic) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.Events {
		if e.Topic == topic {
			count++
		}
	}
	return count
}

// Messages returns the payloads published on [events.TopicShowMessage].
func (n *RecordingNotifier) Messages() []events.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var msgs []events.Message
	for _, e := range n.Events {
		if msg, ok := e.Data.(events.Message); ok && e.Topic == events.TopicShowMessage {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Topics returns the published topics in order.
func (n *RecordingNotifier) Topics() []events.Topic {
	n.mu.Lock()
	defer n.mu.Unlock()
	topics := make([]events.Topic, len(n.Events))
	for i, e := range n.Events {
		topics[i] = e.Topic
	}
	return topics
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

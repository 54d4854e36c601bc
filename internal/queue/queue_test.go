package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mutueye/qst-tracking-monorepo/internal/config"
	"github.com/Mutueye/qst-tracking-monorepo/internal/database"
	"github.com/Mutueye/qst-tracking-monorepo/internal/events"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := &config.DatabaseConfig{
		Path:         filepath.Join(tmpDir, "test.db"),
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testEvent(guid string) events.Event {
	return events.Event{
		UserID:    "member_id:7",
		URL:       "https://example.com/jobfair?id=3&tab=课程",
		Type:      events.CategoryDuration,
		GUID:      guid,
		Source:    events.SourceLocal,
		Platform:  events.PlatformJobFair,
		LocalTime: "2023/8/21 15:36:15",
		EventTime: 1692603375123,
		BData:     `{"ms":5400}`,
	}
}

// stores returns every Store implementation under test.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite := NewSQLiteStore(testDB(t))
	gz, err := NewCompressedStore(NewMemoryStore(), "gzip")
	require.NoError(t, err)
	zs, err := NewCompressedStore(NewSQLiteStore(testDB(t)), "zstd")
	require.NoError(t, err)

	return map[string]Store{
		"memory":      NewMemoryStore(),
		"sqlite":      sqlite,
		"gzip memory": gz,
		"zstd sqlite": zs,
	}
}

func TestQueue_EnqueueAndDrain(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := New(store)

			added, err := q.Enqueue(ctx, []events.Event{testEvent("a"), testEvent("b")})
			require.NoError(t, err)
			require.Equal(t, 2, added)

			n, err := q.Len(ctx)
			require.NoError(t, err)
			require.Equal(t, 2, n)

			drained, err := q.Drain(ctx)
			require.NoError(t, err)
			require.Equal(t, []events.Event{testEvent("a"), testEvent("b")}, drained)

			_, ok, err := store.Get(ctx, StorageKey)
			require.NoError(t, err)
			require.False(t, ok, "drain must delete the storage key")

			again, err := q.Drain(ctx)
			require.NoError(t, err)
			require.Empty(t, again)
		})
	}
}

func TestQueue_EnqueueDeduplicates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := New(store)

			_, err := q.Enqueue(ctx, []events.Event{testEvent("a"), testEvent("b")})
			require.NoError(t, err)

			added, err := q.Enqueue(ctx, []events.Event{testEvent("b"), testEvent("c")})
			require.NoError(t, err)
			require.Equal(t, 1, added)

			added, err = q.Enqueue(ctx, []events.Event{testEvent("a")})
			require.NoError(t, err)
			require.Zero(t, added)

			persisted, err := q.Peek(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b", "c"}, events.IDs(persisted))
		})
	}
}

func TestQueue_RoundTripPreservesFields(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	in := testEvent("6f1c2a9e-1b2c-4d3e-8f40-0123456789ab")
	_, err := New(NewSQLiteStore(db)).Enqueue(ctx, []events.Event{in})
	require.NoError(t, err)

	// A fresh queue over the same database models a process restart.
	out, err := New(NewSQLiteStore(db)).Drain(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, in, out[0])

	want, err := events.Marshal([]events.Event{in})
	require.NoError(t, err)
	got, err := events.Marshal(out)
	require.NoError(t, err)
	require.Equal(t, string(want), string(got))
}

func TestQueue_StoredLayout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store)

	_, err := q.Enqueue(ctx, []events.Event{testEvent("a")})
	require.NoError(t, err)

	raw, ok, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(raw, `[{"uid":"member_id:7"`), raw)
}

func TestQueue_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store)

	added, err := q.Enqueue(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, added)

	_, ok, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.False(t, ok)

	drained, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Nil(t, drained)
}

func TestQueue_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, StorageKey, "{not json"))

	q := New(store)
	_, err := q.Drain(ctx)
	require.Error(t, err)

	_, err = q.Enqueue(ctx, []events.Event{testEvent("a")})
	require.Error(t, err)
}

func TestQueue_Clear(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore())

	_, err := q.Enqueue(ctx, []events.Event{testEvent("a")})
	require.NoError(t, err)
	require.NoError(t, q.Clear(ctx))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestQueue_ConcurrentEnqueueLosesNothing(t *testing.T) {
	ctx := context.Background()
	q := New(NewSQLiteStore(testDB(t)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.Enqueue(ctx, []events.Event{testEvent(fmt.Sprintf("e-%d", i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 20, n)
}

func TestNewCompressedStore(t *testing.T) {
	base := NewMemoryStore()

	s, err := NewCompressedStore(base, "none")
	require.NoError(t, err)
	require.Same(t, base, s.(*MemoryStore))

	_, err = NewCompressedStore(base, "brotli")
	require.Error(t, err)

	zs, err := NewCompressedStore(base, "zstd")
	require.NoError(t, err)

	ctx := context.Background()
	value := strings.Repeat(`{"guid":"x"},`, 200)
	require.NoError(t, zs.Set(ctx, "k", value))

	raw, ok, err := base.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Less(t, len(raw), len(value))

	got, ok, err := zs.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value, got)

	_, ok, err = zs.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

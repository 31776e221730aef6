package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis returns a client for a local Redis, skipping the test when
// none is reachable. Integration tests use testcontainers instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newEntry(url, body string) *Entry {
	return &Entry{
		URL:        url,
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Headers:    http.Header{"Content-Type": []string{"text/plain"}},
		Data:       []byte(body),
		CachedAt:   time.Now(),
	}
}

// runStorageContract exercises the behavior every Storage must share.
func runStorageContract(t *testing.T, newStorage func(t *testing.T) Storage) {
	ctx := context.Background()

	t.Run("open creates generation once", func(t *testing.T) {
		s := newStorage(t)

		_, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		_, err = s.Open(ctx, "v1")
		require.NoError(t, err)

		names, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"v1"}, names)
	})

	t.Run("open rejects empty name", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.Open(ctx, "")
		assert.Error(t, err)
	})

	t.Run("keys in creation order", func(t *testing.T) {
		s := newStorage(t)
		for _, name := range []string{"v1", "v2", "v3"} {
			_, err := s.Open(ctx, name)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		names, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"v1", "v2", "v3"}, names)
	})

	t.Run("put and match", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "v1", c.Name())

		key := Key("https://app.example.com/index.html")
		require.NoError(t, c.Put(ctx, key, newEntry(key.String(), "<html></html>")))

		got, err := c.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(got.Data))
		assert.Equal(t, http.StatusOK, got.StatusCode)
		assert.Equal(t, "text/plain", got.Headers.Get("Content-Type"))

		got, err = s.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(got.Data))
	})

	t.Run("miss", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		_, err = c.Match(ctx, "https://app.example.com/missing")
		assert.True(t, errors.Is(err, ErrCacheMiss), "got %v", err)

		_, err = s.Match(ctx, "https://app.example.com/missing")
		assert.True(t, errors.Is(err, ErrCacheMiss), "got %v", err)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		key := Key("https://app.example.com/app.js")
		require.NoError(t, c.Put(ctx, key, newEntry(key.String(), "first")))
		require.NoError(t, c.Put(ctx, key, newEntry(key.String(), "second")))

		got, err := c.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got.Data))
	})

	t.Run("put nil entry", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		assert.Error(t, c.Put(ctx, "k", nil))
	})

	t.Run("put all", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		entries := map[Key]*Entry{
			"https://app.example.com/":           newEntry("https://app.example.com/", "root"),
			"https://app.example.com/index.html": newEntry("https://app.example.com/index.html", "index"),
		}
		require.NoError(t, c.PutAll(ctx, entries))

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Key{"https://app.example.com/", "https://app.example.com/index.html"}, keys)
	})

	t.Run("put all with nil entry writes nothing", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)

		err = c.PutAll(ctx, map[Key]*Entry{
			"https://app.example.com/a": newEntry("https://app.example.com/a", "a"),
			"https://app.example.com/b": nil,
		})
		require.Error(t, err)

		keys, err := c.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("match searches generations in creation order", func(t *testing.T) {
		s := newStorage(t)
		key := Key("https://app.example.com/logo.png")

		old, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		current, err := s.Open(ctx, "v2")
		require.NoError(t, err)

		require.NoError(t, current.Put(ctx, key, newEntry(key.String(), "new")))
		got, err := s.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got.Data))

		require.NoError(t, old.Put(ctx, key, newEntry(key.String(), "old")))
		got, err = s.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "old", string(got.Data))
	})

	t.Run("delete generation", func(t *testing.T) {
		s := newStorage(t)
		key := Key("https://app.example.com/index.html")

		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		require.NoError(t, c.Put(ctx, key, newEntry(key.String(), "index")))

		deleted, err := s.Delete(ctx, "v1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "v1")
		require.NoError(t, err)
		assert.False(t, deleted)

		names, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		_, err = s.Match(ctx, key)
		assert.True(t, errors.Is(err, ErrCacheMiss))

		// Reopening starts from an empty generation.
		c, err = s.Open(ctx, "v1")
		require.NoError(t, err)
		_, err = c.Match(ctx, key)
		assert.True(t, errors.Is(err, ErrCacheMiss))
	})

	t.Run("concurrent put and match", func(t *testing.T) {
		s := newStorage(t)
		c, err := s.Open(ctx, "v1")
		require.NoError(t, err)
		key := Key("https://app.example.com/race")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = c.Put(ctx, key, newEntry(key.String(), "body"))
			}()
			go func() {
				defer wg.Done()
				_, _ = s.Match(ctx, key)
			}()
		}
		wg.Wait()

		got, err := c.Match(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "body", string(got.Data))
	})
}

func TestMemoryStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return NewMemoryStorage()
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	c, err := s.Open(ctx, "v1")
	require.NoError(t, err)

	key := Key("https://app.example.com/index.html")
	entry := newEntry(key.String(), "index")
	require.NoError(t, c.Put(ctx, key, entry))

	entry.Data[0] = 'X'
	got, err := c.Match(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "index", string(got.Data))

	got.Data[0] = 'Y'
	again, err := s.Match(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "index", string(again.Data))
}

func TestRedisStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return NewRedisStorage(setupTestRedis(t))
	})
}

func TestNewRedisStorage_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStorage should panic with nil redis client")
		}
	}()
	NewRedisStorage(nil)
}

func TestRedisStorage_Layout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	s := NewRedisStorageWithPrefix(client, "")
	assert.Equal(t, "offline:caches", s.indexKey())
	assert.Equal(t, "offline:cache:v1", s.generationKey("v1"))

	s = NewRedisStorageWithPrefix(client, "pwa")
	assert.Equal(t, "pwa:caches", s.indexKey())
}

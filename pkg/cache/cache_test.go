package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/docktree/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return a nil miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := Clear(ctx, c); err != nil {
		t.Errorf("Clear error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("empty cache should miss")
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get = (%q, %v, %v), want (v, true, nil)", data, hit, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)

	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want miss without error", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}

	if err := Clear(ctx, c); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("Clear left %d entries", len(entries))
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("Clear should keep the cache directory: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	rk1 := k.RecordsKey("json:images.json", RecordsKeyOpts{Fingerprint: "10:1700000000"})
	rk2 := k.RecordsKey("json:images.json", RecordsKeyOpts{Fingerprint: "11:1700000001"})
	if rk1 == rk2 {
		t.Error("Different fingerprints should produce different keys")
	}
	if !strings.HasPrefix(rk1, "records:") {
		t.Errorf("RecordsKey = %s, want records: prefix", rk1)
	}

	fk1 := k.RenderKey("hash123", RenderKeyOpts{Format: "text", Charset: "ascii"})
	fk2 := k.RenderKey("hash123", RenderKeyOpts{Format: "text", Charset: "utf-8"})
	if fk1 == fk2 {
		t.Error("Different RenderKeyOpts should produce different keys")
	}
	fk3 := k.RenderKey("hash123", RenderKeyOpts{Format: "text", Charset: "ascii", Intermediate: true})
	if fk1 == fk3 {
		t.Error("Intermediate should change the render key")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "host:a:")

	key := scoped.RecordsKey("tarball:x.tar", RecordsKeyOpts{})
	if !strings.HasPrefix(key, "host:a:records:") {
		t.Errorf("ScopedKeyer RecordsKey should be prefixed: %s", key)
	}
	if got := KeyType(key); got != KeyTypeRecords {
		t.Errorf("KeyType(%s) = %s, want %s", key, got, KeyTypeRecords)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.RenderKey("h", RenderKeyOpts{Format: "json"})
	if !strings.HasPrefix(key, "prefix:render:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrUnavailable)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("Retryable should keep the cause in the chain")
	}
	if err.Error() != ErrUnavailable.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(ErrUnavailable) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestBackoff(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	if err := fast.Do(ctx, func() error { calls++; return nil }); err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	calls = 0
	plain := errors.New("boom")
	if err := fast.Do(ctx, func() error { calls++; return plain }); err != plain {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err := fast.Do(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}

	calls = 0
	err = fast.Do(ctx, func() error { calls++; return Retryable(ErrUnavailable) })
	if !errors.Is(err, ErrUnavailable) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d, want ErrUnavailable after 3", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrUnavailable)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "")
	defer c.Close()

	if _, hit, err := c.Get(context.Background(), "k"); err == nil || hit {
		t.Errorf("Get on unreachable server = (hit=%v, err=%v), want error", hit, err)
	}
	if c.prefix != "docktree:" {
		t.Errorf("default prefix = %q, want docktree:", c.prefix)
	}
}

func TestInstrumented(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrumented(fc)
	key := NewDefaultKeyer().RecordsKey("json:x", RecordsKeyOpts{})

	_, _, _ = c.Get(ctx, key)
	_ = c.Set(ctx, key, []byte("data"), 0)
	_, _, _ = c.Get(ctx, key)

	if hooks.miss != 1 || hooks.hit != 1 || hooks.set != 4 {
		t.Errorf("hooks = %+v, want 1 miss, 1 hit, 4 bytes set", *hooks)
	}
	if hooks.lastType != KeyTypeRecords {
		t.Errorf("key type = %s, want %s", hooks.lastType, KeyTypeRecords)
	}
	if err := Clear(ctx, c); err != nil {
		t.Errorf("Clear through wrapper error: %v", err)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hit, miss, set int
	lastType       string
}

func (h *countingHooks) OnCacheHit(_ context.Context, kt string)  { h.hit++; h.lastType = kt }
func (h *countingHooks) OnCacheMiss(_ context.Context, kt string) { h.miss++; h.lastType = kt }
func (h *countingHooks) OnCacheSet(_ context.Context, kt string, n int) {
	h.set += n
	h.lastType = kt
}

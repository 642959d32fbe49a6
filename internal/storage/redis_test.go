// internal/storage/redis_test.go
package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) *RedisSnapshotStore {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisSnapshotStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisSnapshotStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisSnapshotStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	original := testSnapshot{Name: "kira", Count: 3}
	if err := store.Save(ctx, "test", &original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded testSnapshot
	found, err := store.Load(ctx, "test", &loaded)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found || loaded != original {
		t.Errorf("found=%v got %+v, want %+v", found, loaded, original)
	}
}

func TestRedisSnapshotStoreMissingKey(t *testing.T) {
	store := newRedisStore(t)

	var v testSnapshot
	found, err := store.Load(context.Background(), "never_saved", &v)
	if err != nil {
		t.Fatalf("missing key should not error: %v", err)
	}
	if found {
		t.Error("missing key should report not found")
	}
}

func TestRedisSnapshotStoreDelete(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, "test", &testSnapshot{Name: "kira"})
	if err := store.Delete(ctx, "test"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var v testSnapshot
	if found, _ := store.Load(ctx, "test", &v); found {
		t.Error("deleted key should report not found")
	}
}

func TestRedisSnapshotStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisSnapshotStore(context.Background(), RedisOptions{
		Addr:   mr.Addr(),
		Prefix: "custom:prefix",
	})
	if err != nil {
		t.Fatalf("NewRedisSnapshotStore failed: %v", err)
	}
	defer store.Close()

	store.Save(context.Background(), "test", &testSnapshot{Name: "kira"})
	if !mr.Exists("custom:prefix:test") {
		t.Errorf("expected key custom:prefix:test, have %v", mr.Keys())
	}
}

func TestRedisSnapshotStoreConnectFailure(t *testing.T) {
	_, err := NewRedisSnapshotStore(context.Background(), RedisOptions{
		Addr: "127.0.0.1:1", // nothing listens here
	})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

package store

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestMemoryKVSetGet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "otp:abc", []byte("value"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found, err := kv.Get(ctx, "otp:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatalf("expected key to exist")
	}
	if string(got) != "value" {
		t.Fatalf("expected %q, got %q", "value", got)
	}

	_, found, err = kv.Get(ctx, "otp:missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatalf("expected missing key")
	}
}

func TestMemoryKVTTLExpiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "otp:short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, found, _ := kv.Get(ctx, "otp:short"); !found {
		t.Fatalf("expected key before expiry")
	}

	time.Sleep(25 * time.Millisecond)

	if _, found, _ := kv.Get(ctx, "otp:short"); found {
		t.Fatalf("expected key to expire")
	}
}

func TestMemoryKVCompareAndDelete(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "otp:cad", []byte("expected"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err := kv.CompareAndDelete(ctx, "otp:cad", []byte("other"))
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if ok {
		t.Fatalf("mismatched value must not delete")
	}
	if _, found, _ := kv.Get(ctx, "otp:cad"); !found {
		t.Fatalf("key must survive a mismatched compare-and-delete")
	}

	ok, err = kv.CompareAndDelete(ctx, "otp:cad", []byte("expected"))
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if !ok {
		t.Fatalf("matching value must delete")
	}

	// Second consumption of the same key must report failure.
	ok, _ = kv.CompareAndDelete(ctx, "otp:cad", []byte("expected"))
	if ok {
		t.Fatalf("deleted key must not delete twice")
	}
}

func TestMemoryKVKeysPrefix(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_ = kv.Set(ctx, "token:a", []byte("1"), 0)
	_ = kv.Set(ctx, "token:b", []byte("2"), 0)
	_ = kv.Set(ctx, "user:c", []byte("3"), 0)
	_ = kv.Set(ctx, "token:expired", []byte("4"), 5*time.Millisecond)

	time.Sleep(15 * time.Millisecond)

	keys, err := kv.Keys(ctx, "token:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "token:a" || keys[1] != "token:b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

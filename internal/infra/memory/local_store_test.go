package memory

import (
	"context"
	"testing"
)

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore()

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss")
	}
	_ = store.Set(ctx, "k", []byte("v"))
	v, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("expected hit, got %q ok=%v err=%v", v, ok, err)
	}

	_ = store.Delete(ctx, "k")
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestConnectivityToggle(t *testing.T) {
	c := NewConnectivity(false)
	if c.IsConnected(context.Background()) {
		t.Fatalf("expected offline")
	}
	c.Set(true)
	if !c.IsConnected(context.Background()) {
		t.Fatalf("expected online")
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRemoteNotConfigured(t *testing.T) {
	tests := []RemoteOptions{
		{},
		{URL: "redis://localhost:6379"},
		{Token: "secret"},
	}
	for _, opts := range tests {
		kv, err := OpenRemote(context.Background(), opts)
		if err != nil {
			t.Fatalf("OpenRemote(%+v): unexpected error %v", opts, err)
		}
		if kv != nil {
			t.Fatalf("OpenRemote(%+v): expected nil KV", opts)
		}
	}
}

func TestOpenRemoteUnsupportedScheme(t *testing.T) {
	_, err := OpenRemote(context.Background(), RemoteOptions{URL: "memcached://localhost", Token: "x"})
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}

func TestOpenRemoteRedisUsesToken(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	kv, err := OpenRemote(ctx, RemoteOptions{
		URL:        "redis://" + mr.Addr(),
		Token:      "s3cret",
		MessageTTL: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("ping with token failed: %v", err)
	}
	if err := kv.Set(ctx, "chat:r1", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("chat:r1"); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %s", ttl)
	}

	data, err := kv.Get(ctx, "chat:r1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[]` {
		t.Fatalf("unexpected value %q", data)
	}

	if _, err := kv.Get(ctx, "chat:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryKV()

	buf := []byte("abc")
	if err := m.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

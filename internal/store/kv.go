package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// ErrUnsupportedBackend is returned by OpenRemote for unknown URL schemes.
var ErrUnsupportedBackend = errors.New("unsupported key-value backend")

// KV is a byte-oriented key-value backend.
// RedisKV and PostgresKV are remote tiers; MemoryKV is the local tier.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend tags which storage tier served a request.
type Backend string

const (
	BackendKV     Backend = "KV"
	BackendMemory Backend = "Memory"
)

// RemoteOptions configures the remote tier.
type RemoteOptions struct {
	URL        string
	Token      string
	MessageTTL time.Duration // Redis only; zero disables expiry
}

// Configured reports whether both endpoint and credential are present.
func (o RemoteOptions) Configured() bool {
	return o.URL != "" && o.Token != ""
}

// OpenRemote creates the remote tier selected by the URL scheme.
// It returns (nil, nil) when the remote is not configured.
// Connections are established lazily; callers should Ping to probe.
func OpenRemote(ctx context.Context, opts RemoteOptions) (KV, error) {
	if !opts.Configured() {
		return nil, nil
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse KV_URL: %w", err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		kv, err := NewRedisKV(opts.URL, opts.Token, opts.MessageTTL)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case "postgres", "postgresql":
		kv, err := NewPostgresKV(ctx, opts.URL, opts.Token)
		if err != nil {
			return nil, err
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, u.Scheme)
	}
}

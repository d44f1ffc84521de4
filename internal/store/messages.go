package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/metrics"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

const defaultRemoteTimeout = 2 * time.Second

// ErrCorruptValue wraps a stored history that cannot be decoded.
var ErrCorruptValue = errors.New("corrupt history value")

// GetResult is a room history plus the tier that served it.
// RemoteUnavailable is set when a configured remote could not be reached,
// so Messages may be missing history the remote still holds.
type GetResult struct {
	Messages          []models.Message
	Backend           Backend
	RemoteUnavailable bool
}

// SetResult reports whether a write landed and on which tier.
// Backend is BackendMemory when the remote tier was skipped or failed.
type SetResult struct {
	OK      bool
	Backend Backend
}

// MessageStore keeps one ordered message list per room.
//
// Every operation targets the remote tier when one is configured. Remote
// faults are logged and the operation is repeated against the local
// tier; callers learn about the degradation only through the Backend tag.
// Errors are returned only when the local tier itself cannot serve.
type MessageStore struct {
	remote  KV
	local   *MemoryKV
	timeout time.Duration
	logger  zerolog.Logger
}

// MessageStoreOptions configures a MessageStore.
type MessageStoreOptions struct {
	Timeout time.Duration // bound on each remote round trip
	Logger  zerolog.Logger
}

// NewMessageStore creates a store. remote may be nil, in which case every
// request is served from local.
func NewMessageStore(remote KV, local *MemoryKV, opts MessageStoreOptions) *MessageStore {
	if local == nil {
		local = NewMemoryKV()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRemoteTimeout
	}
	return &MessageStore{
		remote:  remote,
		local:   local,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// roomMessagesKey returns the key for a room's message list.
func roomMessagesKey(roomID string) string {
	return fmt.Sprintf("chat:%s", roomID)
}

// RemoteConfigured reports whether a remote tier was configured. It says
// nothing about whether the remote is reachable.
func (s *MessageStore) RemoteConfigured() bool {
	return s.remote != nil
}

// Ping checks the remote tier. It returns nil when none is configured.
func (s *MessageStore) Ping(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.remote.Ping(ctx)
}

// Close releases the remote tier.
func (s *MessageStore) Close() error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Close()
}

// Get returns the room's history, oldest first. A room that was never
// written yields an empty, non-nil slice.
func (s *MessageStore) Get(ctx context.Context, roomID string) (GetResult, error) {
	key := roomMessagesKey(roomID)

	var unavailable bool
	if s.remote != nil {
		msgs, err := s.load(ctx, s.remote, key, BackendKV)
		if err == nil {
			return GetResult{Messages: msgs, Backend: BackendKV}, nil
		}
		s.fallback("get", roomID, err)
		unavailable = !errors.Is(err, ErrCorruptValue)
	}

	msgs, err := s.load(ctx, s.local, key, BackendMemory)
	if err != nil {
		return GetResult{}, fmt.Errorf("read local history: %w", err)
	}
	return GetResult{Messages: msgs, Backend: BackendMemory, RemoteUnavailable: unavailable}, nil
}

// Set overwrites the room's history.
func (s *MessageStore) Set(ctx context.Context, roomID string, msgs []models.Message) (SetResult, error) {
	data, err := encodeHistory(msgs)
	if err != nil {
		return SetResult{}, err
	}

	key := roomMessagesKey(roomID)

	if s.remote != nil {
		err := s.save(ctx, s.remote, key, data, BackendKV)
		if err == nil {
			return SetResult{OK: true, Backend: BackendKV}, nil
		}
		s.fallback("set", roomID, err)
	}

	if err := s.save(ctx, s.local, key, data, BackendMemory); err != nil {
		return SetResult{}, fmt.Errorf("write local history: %w", err)
	}
	return SetResult{OK: true, Backend: BackendMemory}, nil
}

// SetLocal overwrites the room's history on the local tier only. It is
// used when the history was read while the remote was unreachable, so
// the remote copy is never replaced by a partial one.
func (s *MessageStore) SetLocal(ctx context.Context, roomID string, msgs []models.Message) (SetResult, error) {
	data, err := encodeHistory(msgs)
	if err != nil {
		return SetResult{}, err
	}
	if err := s.save(ctx, s.local, roomMessagesKey(roomID), data, BackendMemory); err != nil {
		return SetResult{}, fmt.Errorf("write local history: %w", err)
	}
	return SetResult{OK: true, Backend: BackendMemory}, nil
}

func encodeHistory(msgs []models.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return data, nil
}

func (s *MessageStore) load(ctx context.Context, kv KV, key string, backend Backend) ([]models.Message, error) {
	start := time.Now()
	if backend == BackendKV {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data, err := kv.Get(ctx, key)
	metrics.StoreLatency.WithLabelValues("get", string(backend)).Observe(time.Since(start).Seconds())
	if errors.Is(err, ErrNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []models.Message
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
		}
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *MessageStore) save(ctx context.Context, kv KV, key string, data []byte, backend Backend) error {
	start := time.Now()
	if backend == BackendKV {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := kv.Set(ctx, key, data)
	metrics.StoreLatency.WithLabelValues("set", string(backend)).Observe(time.Since(start).Seconds())
	return err
}

func (s *MessageStore) fallback(op, roomID string, err error) {
	metrics.StoreFallbacks.WithLabelValues(op).Inc()
	s.logger.Warn().
		Err(err).
		Str("op", op).
		Str("room_id", roomID).
		Msg("remote store failed, using memory")
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/api"
	"github.com/eldtechnologies/ledgerchat/internal/config"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

func newTestClient(t *testing.T, remote store.KV) *Client {
	t.Helper()
	messages := store.NewMessageStore(remote, store.NewMemoryKV(), store.MessageStoreOptions{
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
	})
	cfg := &config.Config{CORSAllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), cfg, messages, nil))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t, nil)
	ctx := context.Background()

	posted, err := c.SendText(ctx, "r1", "Alice", "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if posted.Message.Sender.Name != "Alice" || posted.TotalMessages != 1 {
		t.Fatalf("unexpected post response: %+v", posted)
	}

	read, err := c.GetMessages(ctx, "r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if read.Count != 1 || read.Messages[0].Content != "hi" || read.Storage != "Memory" {
		t.Fatalf("unexpected read response: %+v", read)
	}

	status, err := c.Status(ctx, "r1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.MessageCount != 1 || status.LastMessage == nil || status.LastMessage.ID != posted.Message.ID {
		t.Fatalf("unexpected status response: %+v", status)
	}
	if status.KVAvailable {
		t.Fatal("expected kvAvailable false without a remote")
	}
}

func TestClientPostsTransfer(t *testing.T) {
	c := newTestClient(t, nil)

	resp, err := c.PostMessage(context.Background(), "payments", PostMessageRequest{
		SenderName: "Bob",
		Type:       string(models.TypeXRPTransfer),
		Content:    "sent you 10 XRP",
		Metadata: models.TransferMetadata{
			Amount:      json.Number("10"),
			Currency:    "XRP",
			Destination: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
		},
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	md, ok := resp.Message.Metadata.(models.TransferMetadata)
	if !ok {
		t.Fatalf("expected transfer metadata, got %T", resp.Message.Metadata)
	}
	if md.Amount.String() != "10" {
		t.Fatalf("expected amount 10, got %s", md.Amount)
	}
}

func TestClientReturnsAPIError(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.SendText(context.Background(), "r1", "Alice", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message == "" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if apiErr.RequestID == "" {
		t.Fatal("expected request id on error")
	}
}

func TestClientHealth(t *testing.T) {
	c := newTestClient(t, nil)

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "healthy" || health.Checks["kv"].Status != "skip" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestClientHealthDegraded(t *testing.T) {
	mr := miniredis.RunT(t)
	remote, err := store.NewRedisKV("redis://"+mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("redis kv: %v", err)
	}
	c := newTestClient(t, remote)
	mr.Close()

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("expected degraded body without error, got %v", err)
	}
	if health.Status != "degraded" || health.Checks["kv"].Status != "fail" {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestClientSendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"messages":[],"count":0,"storage":"Memory"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).GetMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if resp.Messages == nil || len(resp.Messages) != 0 {
		t.Fatalf("expected empty message list, got %+v", resp.Messages)
	}
}

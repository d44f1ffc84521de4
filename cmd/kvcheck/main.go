// kvcheck writes a probe message to a throwaway room and reads it back,
// reporting which storage tier served each step.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/clients/go/chat"
	"github.com/eldtechnologies/ledgerchat/internal/config"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

func main() {
	apiURL := flag.String("api", "", "probe a running server at this URL instead of the KV directly")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	roomID := "kvcheck-" + uuid.NewString()

	var err error
	if *apiURL != "" {
		err = checkAPI(ctx, *apiURL, roomID)
	} else {
		err = checkKV(ctx, logger, roomID)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "FAIL:", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

// checkKV exercises the configured remote tier through a MessageStore.
func checkKV(ctx context.Context, logger zerolog.Logger, roomID string) error {
	cfg := config.Load()
	if !cfg.KVConfigured() {
		return fmt.Errorf("KV_URL and KV_TOKEN must both be set")
	}

	remote, err := store.OpenRemote(ctx, store.RemoteOptions{
		URL:        cfg.KVURL,
		Token:      cfg.KVToken,
		MessageTTL: cfg.KVMessageTTL,
	})
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	messages := store.NewMessageStore(remote, store.NewMemoryKV(), store.MessageStoreOptions{
		Timeout: cfg.KVTimeout,
		Logger:  logger,
	})
	defer messages.Close()

	start := time.Now()
	if err := messages.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Printf("ping     %s\n", time.Since(start))

	probe := models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  "kvcheck",
		Type:      models.TypeSystem,
		Content:   "probe",
		Metadata:  models.SystemMetadata{Event: "kvcheck"},
		Timestamp: time.Now().UTC(),
		Sender:    models.Sender{ID: "kvcheck", Name: "kvcheck"},
	}

	set, err := messages.Set(ctx, roomID, []models.Message{probe})
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}
	fmt.Printf("set      room=%s storage=%s\n", roomID, set.Backend)

	got, err := messages.Get(ctx, roomID)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	fmt.Printf("get      count=%d storage=%s\n", len(got.Messages), got.Backend)

	if set.Backend != store.BackendKV || got.Backend != store.BackendKV {
		return fmt.Errorf("remote tier not used (fell back to %s)", store.BackendMemory)
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != probe.ID {
		return fmt.Errorf("probe message did not round-trip")
	}
	return nil
}

// checkAPI runs the same probe through a live server's room API.
func checkAPI(ctx context.Context, baseURL, roomID string) error {
	client := chat.NewClient(baseURL)

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	fmt.Printf("health   status=%s storage=%s\n", health.Status, health.Storage)

	posted, err := client.SendText(ctx, roomID, "kvcheck", "probe")
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	fmt.Printf("post     room=%s storage=%s\n", roomID, posted.Storage)

	status, err := client.Status(ctx, roomID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	fmt.Printf("status   count=%d storage=%s kvAvailable=%t\n", status.MessageCount, status.Storage, status.KVAvailable)

	if status.LastMessage == nil || status.LastMessage.ID != posted.Message.ID {
		return fmt.Errorf("probe message not visible in room status")
	}
	return nil
}

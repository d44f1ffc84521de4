package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

// MessageStore is the storage the room handlers depend on.
// *store.MessageStore implements it.
type MessageStore interface {
	Get(ctx context.Context, roomID string) (store.GetResult, error)
	Set(ctx context.Context, roomID string, msgs []models.Message) (store.SetResult, error)
	SetLocal(ctx context.Context, roomID string, msgs []models.Message) (store.SetResult, error)
	RemoteConfigured() bool
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store  MessageStore
	logger zerolog.Logger
	locks  *roomLocks

	now   func() time.Time
	newID func() string
}

// NewHandler creates a new Handler backed by the given message store.
func NewHandler(s MessageStore, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  s,
		logger: logger,
		locks:  newRoomLocks(),
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Success: false, Error: message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if utf8.RuneCountInString(name) > 100 {
		name = string([]rune(name)[:100])
	}

	return name
}

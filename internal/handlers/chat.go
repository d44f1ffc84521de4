package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/ledgerchat/internal/metrics"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

// Room IDs: alphanumeric plus a few separators, 1-128 chars
var roomIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

const maxContentBytes = 4096

// AppendMessageRequest represents the append message request.
type AppendMessageRequest struct {
	SenderID         string          `json:"senderId,omitempty"`
	SenderName       string          `json:"senderName,omitempty"`
	SenderXRPAddress string          `json:"senderXrpAddress,omitempty"`
	Type             string          `json:"type,omitempty"`
	Content          string          `json:"content"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// RoomMessagesResponse represents the read room response.
type RoomMessagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
	Storage  store.Backend    `json:"storage"`
}

// AppendMessageResponse represents the append message response.
type AppendMessageResponse struct {
	Success       bool           `json:"success"`
	Message       models.Message `json:"message"`
	TotalMessages int            `json:"totalMessages"`
	Storage       store.Backend  `json:"storage"`
}

// RoomStatusResponse represents the room status probe response.
// LastMessage is null for an empty room.
type RoomStatusResponse struct {
	RoomID       string          `json:"roomId"`
	MessageCount int             `json:"messageCount"`
	LastMessage  *models.Message `json:"lastMessage"`
	Storage      store.Backend   `json:"storage"`
	KVAvailable  bool            `json:"kvAvailable"`
}

// roomIDParam extracts and validates the room ID, writing a 400 on failure.
func (h *Handler) roomIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	roomID := chi.URLParam(r, "roomId")
	if !roomIDRegex.MatchString(roomID) {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return "", false
	}
	return roomID, true
}

// GetRoomMessages handles reading a room's full history.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomIDParam(w, r)
	if !ok {
		return
	}

	history, err := h.store.Get(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to load messages")
		h.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	h.JSON(w, http.StatusOK, RoomMessagesResponse{
		Success:  true,
		Messages: history.Messages,
		Count:    len(history.Messages),
		Storage:  history.Backend,
	})
}

// AppendMessage handles posting a message to a room.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomIDParam(w, r)
	if !ok {
		return
	}

	// Parse request body
	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validate content
	if strings.TrimSpace(req.Content) == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxContentBytes {
		h.Error(w, http.StatusUnprocessableEntity, "content too long (max 4096 bytes)")
		return
	}

	msgType, err := models.ParseMessageType(req.Type)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "type must be one of text, xrp_transfer, token_transfer, image, system")
		return
	}

	// Transfers and images are rejected without their metadata
	metadata, err := models.DecodeMetadata(msgType, req.Metadata)
	if err == nil {
		err = models.ValidateMetadata(msgType, metadata)
	}
	if err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	senderID := sanitizeName(req.SenderID)
	if senderID == "" {
		senderID = models.AnonymousSenderID
	}
	senderName := sanitizeName(req.SenderName)
	if senderName == "" {
		senderName = models.AnonymousSenderName
	}
	xrpAddress := strings.TrimSpace(req.SenderXRPAddress)
	if xrpAddress != "" && !models.IsClassicAddress(xrpAddress) {
		h.Error(w, http.StatusBadRequest, "senderXrpAddress is not a valid XRPL address")
		return
	}

	msg := models.Message{
		ID:        h.newID(),
		RoomID:    roomID,
		SenderID:  senderID,
		Type:      msgType,
		Content:   req.Content,
		Metadata:  metadata,
		Timestamp: h.now().UTC(),
		IsRead:    false,
		Sender: models.Sender{
			ID:         senderID,
			Name:       senderName,
			XRPAddress: xrpAddress,
			IsOnline:   true,
		},
	}

	unlock := h.locks.Lock(roomID)
	defer unlock()

	current, err := h.store.Get(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to load messages")
		h.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	history := make([]models.Message, 0, len(current.Messages)+1)
	history = append(history, current.Messages...)
	history = append(history, msg)

	history, evicted := models.TrimHistory(history, models.MaxRoomMessages)

	// A history read while the remote was down may be missing messages the
	// remote still holds; keep it on the local tier only.
	var result store.SetResult
	if current.RemoteUnavailable {
		result, err = h.store.SetLocal(r.Context(), roomID, history)
	} else {
		result, err = h.store.Set(r.Context(), roomID, history)
	}
	if err != nil || !result.OK {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to store message")
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	metrics.MessagesAppended.WithLabelValues(string(msgType), string(result.Backend)).Inc()
	if evicted > 0 {
		metrics.MessagesEvicted.Add(float64(evicted))
	}

	h.JSON(w, http.StatusCreated, AppendMessageResponse{
		Success:       true,
		Message:       msg,
		TotalMessages: len(history),
		Storage:       result.Backend,
	})
}

// RoomStatus handles the room status probe.
func (h *Handler) RoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomIDParam(w, r)
	if !ok {
		return
	}

	history, err := h.store.Get(r.Context(), roomID)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to load messages")
		h.Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	var last *models.Message
	if n := len(history.Messages); n > 0 {
		last = &history.Messages[n-1]
	}

	h.JSON(w, http.StatusOK, RoomStatusResponse{
		RoomID:       roomID,
		MessageCount: len(history.Messages),
		LastMessage:  last,
		Storage:      history.Backend,
		KVAvailable:  h.store.RemoteConfigured(),
	})
}

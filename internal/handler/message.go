package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"familycalls/internal/httputil"
	"familycalls/internal/model"
	"familycalls/internal/service"
	"familycalls/internal/transport/http/middleware"
)

// MessageHandler exposes the chat channel over HTTP.
type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send handles POST /messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ReceiverID == "" {
		httputil.WriteBadRequest(w, "Receiver id is required")
		return
	}

	msg, err := h.messages.Send(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidMessageType):
			httputil.WriteBadRequest(w, "Type must be text, image, or video")
		case errors.Is(err, model.ErrEmptyMessage):
			httputil.WriteBadRequest(w, "Message payload is empty for its type")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "Receiver not found")
		case errors.Is(err, model.ErrDeliveryFailed):
			log.Printf("[ERROR] Send message: sender=%s err=%v", userID, err)
			httputil.WriteDeliveryFailed(w, "Failed to deliver message")
		default:
			log.Printf("[ERROR] Send message: sender=%s err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to send message")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// Conversation handles GET /conversations/{peerID}: full history with one
// peer, ascending by timestamp.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	peerID := chi.URLParam(r, "peerID")

	msgs, err := h.messages.Conversation(r.Context(), userID, peerID)
	if err != nil {
		log.Printf("[ERROR] Conversation: user=%s peer=%s err=%v", userID, peerID, err)
		httputil.WriteInternalError(w, "Failed to load conversation")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, msgs)
}

package handler

import (
	"net/http"

	"familycalls/internal/httputil"
	"familycalls/internal/realtime"
	"familycalls/internal/transport/http/middleware"
)

// WSHandler upgrades authenticated requests into live conversation streams.
type WSHandler struct {
	hub *realtime.Hub // can be nil if redis not wired
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Conversation handles GET /ws?peer={id}. Auth happens in middleware before
// the upgrade, so error responses here are still plain HTTP.
func (h *WSHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	if h.hub == nil {
		httputil.WriteInternalError(w, "Realtime not configured")
		return
	}

	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		httputil.WriteBadRequest(w, "peer query parameter is required")
		return
	}
	if peerID == userID {
		httputil.WriteBadRequest(w, "Cannot subscribe to a conversation with yourself")
		return
	}

	h.hub.ServeConversation(w, r, userID, peerID)
}

package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"familycalls/internal/httputil"
	"familycalls/internal/model"
	"familycalls/internal/repository"
	"familycalls/internal/transport/http/middleware"
)

// TokenHandler manages the push token registry. Tokens are written straight
// through to the repository; there is no service layer to speak of.
type TokenHandler struct {
	tokens repository.DeviceTokenRepository
}

func NewTokenHandler(tokens repository.DeviceTokenRepository) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Register handles PUT /devices/token. Upsert semantics: a token already
// registered under another user is reassigned to the caller.
func (h *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "Token is required")
		return
	}
	if req.Platform != model.PlatformIOS && req.Platform != model.PlatformAndroid {
		httputil.WriteBadRequest(w, "Platform must be ios or android")
		return
	}

	if err := h.tokens.Upsert(r.Context(), userID, req.Token, req.Platform); err != nil {
		log.Printf("[ERROR] Register token: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to register token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// Remove handles DELETE /devices/token (logout / token rotation).
func (h *TokenHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.RemoveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "Token is required")
		return
	}

	if err := h.tokens.Delete(r.Context(), req.Token); err != nil {
		log.Printf("[ERROR] Remove token: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to remove token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

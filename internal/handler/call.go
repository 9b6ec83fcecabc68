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

// CallHandler exposes the signaling state machine over HTTP.
type CallHandler struct {
	calls *service.CallService
}

func NewCallHandler(calls *service.CallService) *CallHandler {
	return &CallHandler{calls: calls}
}

// Create handles POST /calls: start ringing a family member.
func (h *CallHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.InitiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ReceiverID == "" {
		httputil.WriteBadRequest(w, "Receiver id is required")
		return
	}

	call, err := h.calls.Initiate(r.Context(), userID, req.ReceiverID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotParticipant):
			httputil.WriteBadRequest(w, "Cannot call yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "Receiver not found")
		default:
			log.Printf("[ERROR] Create call: caller=%s err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to initiate call")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, call)
}

// Accept handles POST /calls/{id}/accept. Returns the media join info on
// success; a call already settled by the other side comes back as 409.
func (h *CallHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	callID := chi.URLParam(r, "id")

	join, err := h.calls.Accept(r.Context(), callID, userID)
	if err != nil {
		h.writeTransitionError(w, userID, callID, "accept", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, join)
}

// Reject handles POST /calls/{id}/reject.
func (h *CallHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	callID := chi.URLParam(r, "id")

	if err := h.calls.Reject(r.Context(), callID, userID); err != nil {
		h.writeTransitionError(w, userID, callID, "reject", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": string(model.CallStatusRejected)})
}

// End handles POST /calls/{id}/end: either party hanging up while ringing.
func (h *CallHandler) End(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	callID := chi.URLParam(r, "id")

	if err := h.calls.End(r.Context(), callID, userID); err != nil {
		h.writeTransitionError(w, userID, callID, "end", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": string(model.CallStatusEnded)})
}

// Answer handles POST /calls/answer, the push-originated accept: the push
// payload names the caller, so the latest ringing record for the pair is the
// one answered.
func (h *CallHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.AnswerCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.CallerID == "" {
		httputil.WriteBadRequest(w, "Caller id is required")
		return
	}

	join, err := h.calls.AnswerLatest(r.Context(), req.CallerID, userID)
	if err != nil {
		h.writeTransitionError(w, userID, req.CallerID, "answer", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, join)
}

// Incoming handles GET /calls/incoming: calls currently ringing for the user.
func (h *CallHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	calls, err := h.calls.Incoming(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Incoming calls: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to list incoming calls")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, calls)
}

// History handles GET /calls/history, classified from the caller's side.
func (h *CallHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	entries, err := h.calls.History(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Call history: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to load call history")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entries)
}

// JoinInfo handles GET /calls/{id}/join: the caller fetching media join info
// after observing the accept.
func (h *CallHandler) JoinInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	callID := chi.URLParam(r, "id")

	join, err := h.calls.JoinInfoFor(r.Context(), callID, userID)
	if err != nil {
		h.writeTransitionError(w, userID, callID, "join", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, join)
}

func (h *CallHandler) writeTransitionError(w http.ResponseWriter, userID, callID, op string, err error) {
	switch {
	case errors.Is(err, model.ErrCallNotFound):
		httputil.WriteNotFound(w, "Call not found")
	case errors.Is(err, model.ErrNotParticipant):
		httputil.WriteForbidden(w, "Not a participant of this call")
	case errors.Is(err, model.ErrCallSettled):
		httputil.WriteConflict(w, "Call already settled")
	default:
		log.Printf("[ERROR] Call %s: user=%s call=%s err=%v", op, userID, callID, err)
		httputil.WriteInternalError(w, "Failed to update call")
	}
}

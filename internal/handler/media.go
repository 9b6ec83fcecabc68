package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"familycalls/internal/httputil"
	"familycalls/internal/model"
	"familycalls/internal/service"
	"familycalls/internal/transport/http/middleware"
)

// MediaHandler hands out presigned upload URLs for message attachments.
type MediaHandler struct {
	media *service.MediaService // can be nil if storage not configured
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// PresignAttachment handles POST /media/messages/presign. The attachment
// bytes never pass through this server: the client PUTs to the returned URL
// and references the public URL in its message.
func (h *MediaHandler) PresignAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	if h.media == nil {
		httputil.WriteInternalError(w, "Media storage not configured")
		return
	}

	var req model.PresignAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ContentType == "" {
		httputil.WriteBadRequest(w, "Content type is required")
		return
	}
	if req.FileSize > model.MaxAttachmentSizeBytes {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Attachment exceeds 50MB limit")
		return
	}

	resp, err := h.media.PresignAttachment(r.Context(), req.ContentType)
	if err != nil {
		if errors.Is(err, model.ErrInvalidAttachmentType) {
			httputil.WriteBadRequest(w, "Unsupported attachment type")
			return
		}
		log.Printf("[ERROR] Presign attachment: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to presign upload")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

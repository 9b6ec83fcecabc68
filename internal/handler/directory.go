package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"familycalls/internal/httputil"
	"familycalls/internal/model"
	"familycalls/internal/service"
	"familycalls/internal/transport/http/middleware"
)

// DirectoryHandler groups roster endpoints and their dependencies.
type DirectoryHandler struct {
	directory    *service.DirectoryService
	mediaService *service.MediaService // can be nil if storage not configured
}

func NewDirectoryHandler(directory *service.DirectoryService, mediaService *service.MediaService) *DirectoryHandler {
	return &DirectoryHandler{
		directory:    directory,
		mediaService: mediaService,
	}
}

// Register handles POST /register.
// Idempotent on device id: re-registering the same device returns the
// existing user with 200 instead of 201.
func (h *DirectoryHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteBadRequest(w, "Name is required")
		return
	}
	if req.DeviceID == "" {
		httputil.WriteBadRequest(w, "Device id is required")
		return
	}

	existing, err := h.directory.Lookup(r.Context(), req.DeviceID)
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, existing)
		return
	}

	user, err := h.directory.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) {
			httputil.WriteCapacityExceeded(w, "Maximum family members limit reached")
			return
		}
		log.Printf("[ERROR] Register: device=%s err=%v", req.DeviceID, err)
		httputil.WriteInternalError(w, "Failed to register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Me handles GET /me, returning the user behind the presented device id.
func (h *DirectoryHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.directory.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// List handles GET /users, returning the whole roster.
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] List users: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, users)
}

// GetByID handles GET /users/{id}.
func (h *DirectoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// UploadAvatar handles POST /me/avatar (multipart).
func (h *DirectoryHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	if h.mediaService == nil {
		httputil.WriteInternalError(w, "Media storage not configured")
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "Avatar file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			httputil.WriteInternalError(w, "Failed to upload avatar")
		}
		return
	}

	if err := h.directory.SetAvatar(r.Context(), userID, upload.URL); err != nil {
		log.Printf("[ERROR] UploadAvatar: user=%s err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to save avatar")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, upload)
}

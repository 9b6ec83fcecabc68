package model

import "errors"

// Avatar upload constraints. Avatars are normalized server-side to a square
// JPEG before storage.
const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000"
	ContentTypeJPEG    = "image/jpeg"
)

// Message attachment constraints. Attachments go directly to object storage
// via presigned PUT; the server only hands out the URL.
const (
	MaxAttachmentSizeBytes = 50 * 1024 * 1024
	AttachmentFolder       = "messages"
)

// IsAllowedImageType reports whether contentType is an accepted avatar type.
func IsAllowedImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// IsAllowedAttachmentType reports whether contentType is accepted for a
// message attachment (image or video).
func IsAllowedAttachmentType(contentType string) bool {
	if IsAllowedImageType(contentType) {
		return true
	}
	switch contentType {
	case "video/mp4", "video/quicktime", "video/webm":
		return true
	}
	return false
}

// UploadResult is returned after a server-side upload (avatars).
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignAttachmentRequest asks for a presigned URL to upload a message
// attachment directly to object storage.
type PresignAttachmentRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// PresignAttachmentResponse carries the presigned PUT target and the public
// URL the client should reference in the message record.
type PresignAttachmentResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

var (
	// ErrFileTooLarge is returned when an upload exceeds its size cap
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidImageType is returned for an unsupported content type
	ErrInvalidImageType = errors.New("invalid image type")

	// ErrInvalidAttachmentType is returned for an unsupported attachment content type
	ErrInvalidAttachmentType = errors.New("invalid attachment type")
)

// Error codes surfaced to clients alongside HTTP status.
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

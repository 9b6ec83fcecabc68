package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"familycalls/internal/handler"
	"familycalls/internal/httputil"
	devicemw "familycalls/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	DirectoryHandler *handler.DirectoryHandler
	CallHandler      *handler.CallHandler
	MessageHandler   *handler.MessageHandler
	TokenHandler     *handler.TokenHandler
	MediaHandler     *handler.MediaHandler
	WSHandler        *handler.WSHandler
	DeviceResolver   devicemw.DeviceResolver
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Registration is the only public endpoint: the device has no identity
	// yet to authenticate with.
	r.Post("/register", cfg.DirectoryHandler.Register)

	// Everything else requires a registered device id
	r.Group(func(r chi.Router) {
		r.Use(devicemw.DeviceAuth(cfg.DeviceResolver))

		// Roster
		r.Get("/me", cfg.DirectoryHandler.Me)
		r.Post("/me/avatar", cfg.DirectoryHandler.UploadAvatar)
		r.Get("/users", cfg.DirectoryHandler.List)
		r.Get("/users/{id}", cfg.DirectoryHandler.GetByID)

		// Push token registry
		r.Put("/devices/token", cfg.TokenHandler.Register)
		r.Delete("/devices/token", cfg.TokenHandler.Remove)

		// Call signaling
		r.Route("/calls", func(r chi.Router) {
			r.Post("/", cfg.CallHandler.Create)
			r.Post("/answer", cfg.CallHandler.Answer)
			r.Get("/incoming", cfg.CallHandler.Incoming)
			r.Get("/history", cfg.CallHandler.History)
			r.Post("/{id}/accept", cfg.CallHandler.Accept)
			r.Post("/{id}/reject", cfg.CallHandler.Reject)
			r.Post("/{id}/end", cfg.CallHandler.End)
			r.Get("/{id}/join", cfg.CallHandler.JoinInfo)
		})

		// Chat
		r.Post("/messages", cfg.MessageHandler.Send)
		r.Get("/conversations/{peerID}", cfg.MessageHandler.Conversation)

		// Media (direct-to-R2 attachment uploads)
		r.Post("/media/messages/presign", cfg.MediaHandler.PresignAttachment)

		// Live conversation stream
		r.Get("/ws", cfg.WSHandler.Conversation)
	})

	return r
}

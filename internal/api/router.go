package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptdeck/internal/promptservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *promptservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/index", h.GetIndex)

	// Prompts.
	r.Post("/prompts", h.CreatePrompt)
	r.Get("/prompts/{id}", h.GetPrompt)
	r.Put("/prompts/{id}", h.UpdatePrompt)
	r.Delete("/prompts/{id}", h.DeletePrompt)
	r.Post("/prompts/{id}/usage", h.RecordUsage)

	// Search.
	r.Get("/search", h.Search)

	// Folders. Names may be nested, hence the wildcard.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.AddFolder)
	r.Put("/folders/*", h.RenameFolder)
	r.Patch("/folders/*", h.SetFolderMeta)
	r.Delete("/folders/*", h.DeleteFolder)

	// Settings and the launcher shortcut.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.SaveSettings)
	r.Get("/hotkey", h.GetHotkey)
	r.Put("/hotkey", h.SetHotkey)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	svc *promptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *promptservice.Service) *Handler {
	return &Handler{svc: svc}
}

// folderParam extracts the folder name from the URL (everything after
// /api/folders/). Nested folders may be sent with encoded slashes.
func folderParam(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetIndex handles GET /api/index.
//
//	@Summary		Get the reconciled prompt index
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	models.Index
//	@Security		BearerAuth
//	@Router			/index [get]
func (h *Handler) GetIndex(w http.ResponseWriter, _ *http.Request) {
	idx, err := h.svc.Index()
	if err != nil {
		writeError(w, "get index", err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// GetPrompt handles GET /api/prompts/{id}.
//
//	@Summary		Get a prompt with its content
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	PromptDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [get]
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPrompt(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get prompt", err)
		return
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, http.StatusOK, p)
}

// CreatePrompt handles POST /api/prompts.
//
//	@Summary		Create a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PromptRequest	true	"Prompt to create"
//	@Success		201		{object}	models.PromptMetadata
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [post]
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := h.svc.CreatePrompt(req.prompt())
	if err != nil {
		writeError(w, "create prompt", err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// UpdatePrompt handles PUT /api/prompts/{id}.
//
//	@Summary		Replace a prompt with optimistic concurrency
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Prompt id"
//	@Param			If-Match	header		string			false	"Checksum of the content being replaced"
//	@Param			body		body		PromptRequest	true	"New prompt state"
//	@Success		200			{object}	models.PromptMetadata
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [put]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := h.svc.UpdatePrompt(chi.URLParam(r, "id"), req.prompt(), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// DeletePrompt handles DELETE /api/prompts/{id}.
//
//	@Summary		Delete a prompt
//	@Tags			prompts
//	@Param			id	path	string	true	"Prompt id"
//	@Success		204	"Prompt deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [delete]
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePrompt(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordUsage handles POST /api/prompts/{id}/usage.
//
//	@Summary		Count one use of a prompt
//	@Tags			prompts
//	@Param			id	path	string	true	"Prompt id"
//	@Success		204	"Usage recorded"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id}/usage [post]
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RecordUsage(chi.URLParam(r, "id")); err != nil {
		writeError(w, "record usage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Fuzzy search over prompt names, descriptions and folders
//	@Description	An empty query returns every prompt, most recently used first.
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	results, err := h.svc.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List folders in order
//	@Tags			folders
//	@Produce		json
//	@Success		200	{object}	FoldersResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, _ *http.Request) {
	folders, err := h.svc.Folders()
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, FoldersResponse{Folders: folders})
}

// AddFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FolderRequest	true	"Folder to create"
//	@Success		201		{object}	FoldersResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) AddFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decode(w, r, &req) {
		return
	}
	folders, err := h.svc.AddFolder(req.Name)
	if err != nil {
		writeError(w, "add folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, FoldersResponse{Folders: folders})
}

// RenameFolder handles PUT /api/folders/*.
//
//	@Summary		Rename a folder and every prompt filed under it
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string				true	"Folder name"
//	@Param			body	body		RenameFolderRequest	true	"New name"
//	@Success		200		{object}	FoldersResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{name} [put]
func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req RenameFolderRequest
	if !decode(w, r, &req) {
		return
	}
	folders, err := h.svc.RenameFolder(folderParam(r), req.NewName)
	if err != nil {
		writeError(w, "rename folder", err)
		return
	}
	writeJSON(w, http.StatusOK, FoldersResponse{Folders: folders})
}

// SetFolderMeta handles PATCH /api/folders/*.
//
//	@Summary		Set a folder's icon and color
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string				true	"Folder name"
//	@Param			body	body		FolderMetaRequest	true	"Decoration"
//	@Success		200		{object}	models.FolderMeta
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{name} [patch]
func (h *Handler) SetFolderMeta(w http.ResponseWriter, r *http.Request) {
	var req FolderMetaRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := h.svc.SetFolderMeta(folderParam(r), req.Icon, req.Color)
	if err != nil {
		writeError(w, "set folder meta", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// DeleteFolder handles DELETE /api/folders/*.
//
//	@Summary		Delete a folder, moving its prompts to the root
//	@Tags			folders
//	@Produce		json
//	@Param			name	path		string	true	"Folder name"
//	@Success		200		{object}	FoldersResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{name} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.DeleteFolder(folderParam(r))
	if err != nil {
		writeError(w, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, FoldersResponse{Folders: folders})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get application settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.AppSettings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	s, err := h.svc.Settings()
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SaveSettings handles PUT /api/settings.
//
//	@Summary		Replace application settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		settings.AppSettings	true	"Settings"
//	@Success		200		{object}	settings.AppSettings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	req := SettingsRequest{AppSettings: settings.Defaults()}
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.SaveSettings(req.AppSettings)
	if err != nil {
		writeError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetHotkey handles GET /api/hotkey.
//
//	@Summary		Get the active launcher shortcut
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	HotkeyResponse
//	@Security		BearerAuth
//	@Router			/hotkey [get]
func (h *Handler) GetHotkey(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HotkeyResponse{Hotkey: h.svc.Hotkey()})
}

// SetHotkey handles PUT /api/hotkey.
//
//	@Summary		Change the launcher shortcut
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		HotkeyRequest	true	"Shortcut, null for the default"
//	@Success		200		{object}	HotkeyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hotkey [put]
func (h *Handler) SetHotkey(w http.ResponseWriter, r *http.Request) {
	var req HotkeyRequest
	if !decode(w, r, &req) {
		return
	}
	hotkey := ""
	if req.Hotkey != nil {
		hotkey = *req.Hotkey
	}
	active, err := h.svc.SetHotkey(hotkey)
	if err != nil {
		writeError(w, "set hotkey", err)
		return
	}
	writeJSON(w, http.StatusOK, HotkeyResponse{Hotkey: active})
}

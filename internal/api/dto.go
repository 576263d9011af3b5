package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdeck/internal/models"
	"github.com/starford/promptdeck/internal/promptservice"
	"github.com/starford/promptdeck/internal/settings"
)

// PromptRequest is the request body for creating or replacing a prompt.
type PromptRequest struct {
	ID          string  `json:"id,omitempty" example:"0d5c4a7e-0000-4000-8000-000000000000"`
	Name        string  `json:"name" example:"Summarize" validate:"required"`
	Folder      string  `json:"folder" example:"Writing"`
	Description string  `json:"description" example:"Summarize the content"`
	Content     string  `json:"content" example:"# Task\n..."`
	Icon        *string `json:"icon" example:"file-text"`
	Color       *string `json:"color" example:"avocado"`
}

// Validate checks the request shape. Folder names are checked by the
// service.
func (r *PromptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	)
}

func (r *PromptRequest) prompt() *models.Prompt {
	return &models.Prompt{
		PromptMetadata: models.PromptMetadata{
			ID:          r.ID,
			Name:        r.Name,
			Folder:      r.Folder,
			Description: r.Description,
			Icon:        r.Icon,
			Color:       r.Color,
		},
		Content: r.Content,
	}
}

// FolderRequest is the request body for creating a folder.
type FolderRequest struct {
	Name string `json:"name" example:"Writing" validate:"required"`
}

// Validate checks the request shape.
func (r *FolderRequest) Validate() error {
	return validation.ValidateStruct(r, validation.Field(&r.Name, validation.Required))
}

// RenameFolderRequest is the request body for renaming a folder.
type RenameFolderRequest struct {
	NewName string `json:"newName" example:"Drafts" validate:"required"`
}

// Validate checks the request shape.
func (r *RenameFolderRequest) Validate() error {
	return validation.ValidateStruct(r, validation.Field(&r.NewName, validation.Required))
}

// FolderMetaRequest sets the decoration of a folder. Null fields clear it.
type FolderMetaRequest struct {
	Icon  *string `json:"icon" example:"folder"`
	Color *string `json:"color" example:"red"`
}

// Validate checks the request shape.
func (r *FolderMetaRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Icon, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&r.Color, validation.NilOrNotEmpty, validation.Length(1, 64)),
	)
}

// HotkeyRequest selects the launcher shortcut. A null hotkey restores the
// default.
type HotkeyRequest struct {
	Hotkey *string `json:"hotkey" example:"CommandOrControl+8"`
}

// Validate checks the request shape.
func (r *HotkeyRequest) Validate() error {
	return validation.ValidateStruct(r, validation.Field(&r.Hotkey, validation.Length(0, 64)))
}

// SettingsRequest wraps the settings document for decoding.
type SettingsRequest struct {
	settings.AppSettings
}

// Validate delegates to the settings rules.
func (r *SettingsRequest) Validate() error {
	return r.AppSettings.Validate()
}

// PromptDetail is the full prompt response type (aliased from the domain layer).
type PromptDetail = promptservice.PromptDetail

// FoldersResponse wraps the ordered folder list.
type FoldersResponse struct {
	Folders []string `json:"folders" validate:"required"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Results []models.PromptMetadata `json:"results" validate:"required"`
}

// HotkeyResponse reports the active launcher shortcut.
type HotkeyResponse struct {
	Hotkey string `json:"hotkey" example:"CommandOrControl+8" validate:"required"`
}

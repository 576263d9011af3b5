// Package settings persists the single application settings record.
package settings

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/storage"
)

// DefaultHotkey is the launcher shortcut used until the user picks another.
const DefaultHotkey = "CommandOrControl+8"

// Themes lists the accepted appearance themes.
var Themes = []any{"dark", "light", "auto"}

// General holds behaviour settings.
type General struct {
	AutoLaunch             bool   `json:"autoLaunch"`
	Hotkey                 string `json:"hotkey"`
	EditorAlwaysOnTop      bool   `json:"editorAlwaysOnTop"`
	WelcomeScreenDismissed bool   `json:"welcomeScreenDismissed"`
}

// Appearance holds visual settings.
type Appearance struct {
	Theme       string `json:"theme"`
	AccentColor string `json:"accentColor"`
}

// AppSettings is the persisted settings.json document.
type AppSettings struct {
	General    General    `json:"general"`
	Appearance Appearance `json:"appearance"`
}

// Defaults returns the settings of a fresh install.
func Defaults() AppSettings {
	return AppSettings{
		General: General{
			Hotkey:            DefaultHotkey,
			EditorAlwaysOnTop: true,
		},
		Appearance: Appearance{
			Theme:       "dark",
			AccentColor: "avocado",
		},
	}
}

// Validate checks the settings values.
func (s AppSettings) Validate() error {
	return validation.Errors{
		"general.hotkey":         validation.Validate(s.General.Hotkey, validation.Required, validation.Length(1, 64)),
		"appearance.theme":       validation.Validate(s.Appearance.Theme, validation.Required, validation.In(Themes...)),
		"appearance.accentColor": validation.Validate(s.Appearance.AccentColor, validation.Required, validation.Length(1, 32)),
	}.Filter()
}

// Load reads the settings file. A missing, corrupt or invalid file yields
// the defaults, which are written back.
func Load(paths storage.Paths, logger *slog.Logger) (AppSettings, error) {
	loaded, found, err := storage.LoadJSON[AppSettings](paths.SettingsPath, logger)
	if err != nil {
		return AppSettings{}, fmt.Errorf("settings: load: %w", err)
	}
	if found && loaded != nil {
		verr := loaded.Validate()
		if verr == nil {
			return *loaded, nil
		}
		logger.Warn("settings: invalid values, using defaults", slog.String("error", verr.Error()))
	}

	def := Defaults()
	if err := storage.SaveJSON(paths.SettingsPath, def); err != nil {
		return AppSettings{}, fmt.Errorf("settings: write defaults: %w", err)
	}
	return def, nil
}

// Save validates s and writes it atomically.
func Save(paths storage.Paths, s AppSettings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err)
	}
	if err := storage.SaveJSON(paths.SettingsPath, s); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

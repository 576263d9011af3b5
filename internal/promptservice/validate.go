package promptservice

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptdeck/internal/apperr"
	"github.com/starford/promptdeck/internal/models"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

var folderRule = validation.By(func(v any) error {
	name, _ := v.(string)
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, `\<>:"|?*`) {
		return errors.New(`must not contain any of \ < > : " | ? *`)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.TrimSpace(seg) != seg {
			return errors.New("must be slash-separated names without empty, dot or padded segments")
		}
	}
	return nil
})

func validatePrompt(p *models.Prompt) error {
	if p == nil {
		return fmt.Errorf("%w: prompt is required", apperr.ErrValidation)
	}
	err := validation.Errors{
		"name":        validation.Validate(strings.TrimSpace(p.Name), validation.Required, validation.RuneLength(1, maxNameLen)),
		"description": validation.Validate(p.Description, validation.RuneLength(0, maxDescriptionLen)),
		"folder":      validation.Validate(p.Folder, validation.RuneLength(0, maxNameLen), folderRule),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, err)
	}
	return nil
}

func validateFolderName(name string) error {
	err := validation.Validate(name, validation.Required, validation.RuneLength(1, maxNameLen), folderRule)
	if err != nil {
		return fmt.Errorf("%w: folder name %s", apperr.ErrValidation, err)
	}
	return nil
}

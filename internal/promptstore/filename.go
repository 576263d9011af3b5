package promptstore

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameBytes = 200

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename turns a display name into a single path component that
// is valid on common filesystems. The result carries no extension.
func SanitizeFilename(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			continue
		}
		b.WriteRune(r)
	}

	name := strings.TrimRight(b.String(), ". ")
	if name == "" {
		return "untitled"
	}

	stem, _, _ := strings.Cut(name, ".")
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		name = "_" + name
	}

	if len(name) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], ". ")
		if name == "" {
			return "untitled"
		}
	}
	return name
}

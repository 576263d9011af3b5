// Package checksum versions prompt bodies for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Of returns the hex-encoded SHA-256 digest of a prompt body.
func Of(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Matches reports whether an If-Match value accepts content. An empty value
// or "*" accepts anything; surrounding quotes and a weak "W/" prefix are
// ignored.
func Matches(ifMatch, content string) bool {
	v := strings.TrimSpace(ifMatch)
	if v == "" || v == "*" {
		return true
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`) == Of(content)
}

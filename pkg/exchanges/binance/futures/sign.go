package futures

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of the canonical query string.
// Canonical form is url.Values.Encode output: keys sorted lexicographically,
// so any insertion order of the same parameters signs identically.
func Sign(queryString, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(queryString))
	return hex.EncodeToString(h.Sum(nil))
}

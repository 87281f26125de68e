package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// documentoHash computes the canonical hash of a legal document: the hex
// SHA-256 of its fields joined by newlines, in a fixed order.
func documentoHash(campos ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(campos, "\n")))
	return hex.EncodeToString(sum[:])
}

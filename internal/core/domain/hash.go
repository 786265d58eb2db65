package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashContent is the stable chunk identity: SHA-256 over case-normalized,
// whitespace-trimmed text. Re-ingesting identical content reproduces the
// same hash, which is what makes repeated ingestion safe.
func HashContent(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentDigest computes the SHA-256 hash of a response body, used to spot pages that changed between runs
func ContentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

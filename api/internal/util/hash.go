package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex keys cached analyses by the uploaded bytes.
func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

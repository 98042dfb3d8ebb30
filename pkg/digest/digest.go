package digest

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Sum blake2b-256 hex
func Sum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short 前 8 bytes, 用在 object key
func Short(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

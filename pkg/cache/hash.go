package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey derives a key of the form "kind:sha256(parts)". parts are the
// content hash of the scene, request or frame plus the options that change
// the result, so two runs share an entry only when they would produce the
// same frames.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data. Scene documents and frame sets are
// addressed by it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

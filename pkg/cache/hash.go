package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RenderKey generates the cache key for a rendered artifact.
// The key format is: render:<layout>:hash(source).
//
// The layout engine is kept out of the hash so keys are greppable per
// engine when inspecting a cache directory or a Redis keyspace.
func RenderKey(source, layout string) string {
	return fmt.Sprintf("render:%s:%s", layout, Hash([]byte(source)))
}

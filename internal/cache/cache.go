// Package cache provides the byte caches behind transcript reuse and the
// typed memo behind per-language tokenizer loading.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a namespaced key from arbitrary parts. Parts are
// length-prefixed so ("ab","c") and ("a","bc") differ.
func CacheKey(namespace string, parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return "bankintent:v1:" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

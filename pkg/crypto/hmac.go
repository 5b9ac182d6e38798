// Package crypto provides the primitives behind companion-device payload
// recovery: HMAC-SHA256, the HMAC feedback expansion used by the pairing key
// schedule, AES-CCM with a configurable tag length, and buffer wiping.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

// SHA256LenBytes is the SHA-256 (and HMAC-SHA256) output length in bytes.
const SHA256LenBytes = sha256.Size

// HMACSHA256 computes the HMAC-SHA256 of message under key.
func HMACSHA256(key, message []byte) [SHA256LenBytes]byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	var result [SHA256LenBytes]byte
	h.Sum(result[:0])
	return result
}

// NewHMACSHA256 returns a hash.Hash for computing HMAC-SHA256 incrementally.
//
// Usage:
//
//	h := crypto.NewHMACSHA256(key)
//	h.Write(prev)
//	h.Write(label)
//	mac := h.Sum(nil)
func NewHMACSHA256(key []byte) hash.Hash {
	return hmac.New(sha256.New, key)
}

// HMACEqual compares two MACs in constant time.
func HMACEqual(mac1, mac2 []byte) bool {
	return hmac.Equal(mac1, mac2)
}

package crypto

import (
	"errors"
	"math"
)

// MaxFeedbackLength is the most output ExpandFeedback can produce: the block
// counter is a single byte starting at 1.
const MaxFeedbackLength = math.MaxUint8 * SHA256LenBytes

var ErrFeedbackLength = errors.New("expand: requested length out of range")

// ExpandFeedback stretches key into length bytes by chaining HMAC-SHA256
// blocks:
//
//	T(0) = ""
//	T(i) = HMAC-SHA256(key, T(i-1) || label || byte(i))
//	out  = T(1) || T(2) || ... truncated to length
//
// The last block is computed in full and only partially kept.
func ExpandFeedback(key, label []byte, length int) ([]byte, error) {
	if length <= 0 || length > MaxFeedbackLength {
		return nil, ErrFeedbackLength
	}

	out := make([]byte, length)
	var prev []byte
	offset := 0
	for counter := 1; offset < length; counter++ {
		mac := NewHMACSHA256(key)
		mac.Write(prev)
		mac.Write(label)
		mac.Write([]byte{byte(counter)})
		prev = mac.Sum(prev[:0])

		offset += copy(out[offset:], prev)
	}
	Wipe(prev)

	return out, nil
}

package companion

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// AuthKeySize is the pre-shared authkey length in bytes.
	AuthKeySize = 16

	// NonceSize is the length of each peer's random in bytes.
	NonceSize = 16
)

// AuthKey is the 16-byte pre-shared authentication key.
type AuthKey [AuthKeySize]byte

// Nonce is a 16-byte random contributed by one peer.
type Nonce [NonceSize]byte

// Encoded holds the four inputs in their textual form.
type Encoded struct {
	AuthKey     string
	PhoneRandom string
	WatchRandom string
	Ciphertext  string
}

// Payload is a decoded encrypt_companion_device capture.
type Payload struct {
	AuthKey     AuthKey
	PhoneRandom Nonce
	WatchRandom Nonce
	Ciphertext  []byte
}

var (
	errAuthKeyFormat = errors.New("must be a 16-byte value encoded as 32 hex chars")
	errNotHex        = errors.New("not a valid hex string")
	errNotBase64     = errors.New("not valid base64")
)

// Decode parses all four inputs. The first failure is returned.
func (e Encoded) Decode() (Payload, error) {
	var (
		p   Payload
		err error
	)
	if p.AuthKey, err = ParseAuthKey(e.AuthKey); err != nil {
		return Payload{}, err
	}
	if p.PhoneRandom, err = ParseNonce(e.PhoneRandom, FieldPhoneRandom); err != nil {
		return Payload{}, err
	}
	if p.WatchRandom, err = ParseNonce(e.WatchRandom, FieldWatchRandom); err != nil {
		return Payload{}, err
	}
	if p.Ciphertext, err = ParseCiphertext(e.Ciphertext); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// ParseAuthKey decodes a 16-byte authkey from 32 hex characters, optionally
// prefixed with "hex:". Surrounding whitespace and letter case are ignored.
func ParseAuthKey(text string) (AuthKey, error) {
	var key AuthKey

	raw := strings.ToLower(strings.TrimSpace(text))
	raw = strings.TrimPrefix(raw, "hex:")
	if len(raw) != 2*AuthKeySize || !isHex(raw) {
		return key, invalidEncoding(FieldAuthKey, errAuthKeyFormat)
	}

	if _, err := hex.Decode(key[:], []byte(raw)); err != nil {
		return AuthKey{}, invalidEncoding(FieldAuthKey, errAuthKeyFormat)
	}
	return key, nil
}

// ParseNonce decodes a 16-byte random. label names the input in errors.
//
// A case-insensitive "hex:", "b64:" or "base64:" prefix selects the decoder.
// Without a prefix, exactly 32 hex characters decode as hex and anything
// else as strict base64.
func ParseNonce(text, label string) (Nonce, error) {
	var nonce Nonce

	raw := strings.TrimSpace(text)
	lowered := strings.ToLower(raw)

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(lowered, "hex:"):
		data, err = decodeHex(raw[len("hex:"):])
	case strings.HasPrefix(lowered, "b64:"):
		data, err = decodeBase64(raw[len("b64:"):])
	case strings.HasPrefix(lowered, "base64:"):
		data, err = decodeBase64(raw[len("base64:"):])
	case len(raw) == 2*NonceSize && isHex(raw):
		data, err = decodeHex(raw)
	default:
		data, err = decodeBase64(raw)
	}
	if err != nil {
		return nonce, invalidEncoding(label, err)
	}

	if len(data) != NonceSize {
		return nonce, invalidEncoding(label, fmt.Errorf("decoded %d bytes, must be exactly %d", len(data), NonceSize))
	}
	copy(nonce[:], data)
	return nonce, nil
}

// ParseCiphertext decodes the base64 payload copied from the
// encrypt_companion_device field. Decoding is strict: standard alphabet,
// canonical padding, no embedded line breaks.
func ParseCiphertext(text string) ([]byte, error) {
	data, err := decodeBase64(strings.TrimSpace(text))
	if err != nil {
		return nil, invalidEncoding(FieldCiphertext, err)
	}
	return data, nil
}

// decodeHex decodes s without echoing offending characters into the error.
func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 || !isHex(s) {
		return nil, errNotHex
	}
	return hex.DecodeString(s)
}

// decodeBase64 is strict standard base64. The encoding package skips CR and
// LF even in strict mode, so those are rejected up front.
func decodeBase64(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, errNotBase64
	}
	data, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, fmt.Errorf("%w (at input byte %d)", errNotBase64, int64(corrupt))
		}
		return nil, errNotBase64
	}
	return data, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case '0' <= c && c <= '9':
		case 'a' <= c && c <= 'f':
		case 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

package companion

import (
	"github.com/astrobox/companion/pkg/crypto"
)

const (
	// EncryptionKeySize is the derived AES-128 key length.
	EncryptionKeySize = crypto.AESCCMKeySize

	// PacketNonceSize is the derived CCM nonce length.
	PacketNonceSize = crypto.CompanionNonceSize

	// KeyMaterialSize is how much output the key schedule expands to.
	KeyMaterialSize = 64

	encryptionKeyOffset = 16
	packetNonceOffset   = 36
	packetNoncePrefix   = 4
)

// keyScheduleLabel is mixed into every block of the feedback chain.
var keyScheduleLabel = []byte("miwear-auth")

// SessionKeys is the key and nonce for one encrypt_companion_device payload.
type SessionKeys struct {
	EncryptionKey [EncryptionKeySize]byte

	// PacketNonce is OKM[36:40] followed by eight zero bytes.
	PacketNonce [PacketNonceSize]byte
}

// Wipe zeroes the keys.
func (k *SessionKeys) Wipe() {
	crypto.Wipe(k.EncryptionKey[:])
	crypto.Wipe(k.PacketNonce[:])
}

// KeyMaterial runs the pairing key schedule and returns the full 64 bytes of
// output key material:
//
//	init_key = phone || watch
//	hmac_key = HMAC-SHA256(init_key, authkey)
//	T(i)     = HMAC-SHA256(hmac_key, T(i-1) || "miwear-auth" || byte(i)), T(0) = ""
//	okm      = T(1) || T(2)
//
// Two blocks fill the 64 bytes, so the chain stops before counter 3.
// Only OKM[16:32] and OKM[36:40] are consumed; see DeriveSessionKeys.
func KeyMaterial(authKey AuthKey, phone, watch Nonce) [KeyMaterialSize]byte {
	var initKey [2 * NonceSize]byte
	copy(initKey[:NonceSize], phone[:])
	copy(initKey[NonceSize:], watch[:])

	hmacKey := crypto.HMACSHA256(initKey[:], authKey[:])

	okm, err := crypto.ExpandFeedback(hmacKey[:], keyScheduleLabel, KeyMaterialSize)
	if err != nil {
		// KeyMaterialSize is a constant inside the expansion limit.
		panic(err)
	}

	var out [KeyMaterialSize]byte
	copy(out[:], okm)

	crypto.Wipe(okm)
	crypto.Wipe(hmacKey[:])
	crypto.Wipe(initKey[:])
	return out
}

// DeriveSessionKeys derives the AES key and CCM nonce for a payload from the
// authkey and the two handshake randoms. Phone comes first; swapping the
// randoms yields unrelated keys.
func DeriveSessionKeys(authKey AuthKey, phone, watch Nonce) SessionKeys {
	okm := KeyMaterial(authKey, phone, watch)

	var keys SessionKeys
	copy(keys.EncryptionKey[:], okm[encryptionKeyOffset:encryptionKeyOffset+EncryptionKeySize])
	copy(keys.PacketNonce[:packetNoncePrefix], okm[packetNonceOffset:packetNonceOffset+packetNoncePrefix])

	crypto.Wipe(okm[:])
	return keys
}

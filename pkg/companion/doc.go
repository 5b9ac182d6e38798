// Package companion recovers the plaintext of an encrypt_companion_device
// payload from a wearable pairing handshake.
//
// The pipeline is strictly sequential:
//  1. Decode: the authkey, the phone and watch randoms, and the ciphertext
//     are parsed from hex/base64 text into fixed-size buffers.
//  2. Key schedule: HMAC-SHA256(phone||watch, authkey) keys an HMAC feedback
//     chain labelled "miwear-auth"; the AES key is OKM[16:32] and the packet
//     nonce is OKM[36:40] followed by eight zero bytes.
//  3. Decrypt: AES-128-CCM with a 4-byte tag and no associated data.
//  4. Emit: plaintext as base64 text or raw bytes.
//
// Every stage is a pure function of its inputs. Calls share no state and may
// run concurrently.
//
// Failures carry a Kind (InvalidEncoding, AuthenticationFailed, DecryptError)
// that callers test with errors.Is against ErrInvalidEncoding,
// ErrAuthenticationFailed and ErrDecryptError, or with KindOf. Error text never
// contains key material or plaintext.
package companion

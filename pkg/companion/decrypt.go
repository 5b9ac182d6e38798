package companion

import (
	"errors"
	"fmt"

	"github.com/astrobox/companion/pkg/crypto"
	"github.com/pion/logging"
)

// DecryptorConfig configures a Decryptor.
type DecryptorConfig struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Decryptor authenticates and decrypts encrypt_companion_device payloads.
// It holds no per-call state and is safe for concurrent use.
type Decryptor struct {
	log logging.LeveledLogger
}

// NewDecryptor creates a Decryptor.
func NewDecryptor(config DecryptorConfig) *Decryptor {
	d := &Decryptor{}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("companion-decrypt")
	}
	return d
}

// Decrypt opens ciphertext || tag with AES-128-CCM (12-byte nonce, 4-byte
// tag, no associated data).
//
// Returns ErrDecryptError if the ciphertext cannot hold a tag and
// ErrAuthenticationFailed if the tag does not verify. No plaintext is
// returned on failure.
func (d *Decryptor) Decrypt(keys SessionKeys, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < crypto.CompanionTagSize {
		if d.log != nil {
			d.log.Warnf("ciphertext is %d bytes, shorter than the %d-byte tag", len(ciphertext), crypto.CompanionTagSize)
		}
		return nil, &Error{
			Kind: KindDecryptError,
			Err:  fmt.Errorf("ciphertext is %d bytes, need at least %d: %w", len(ciphertext), crypto.CompanionTagSize, crypto.ErrAESCCMCiphertextTooShort),
		}
	}

	aead, err := crypto.NewCompanionCCM(keys.EncryptionKey[:])
	if err != nil {
		return nil, &Error{Kind: KindDecryptError, Err: err}
	}

	plaintext, err := aead.Open(nil, keys.PacketNonce[:], ciphertext, nil)
	switch {
	case errors.Is(err, crypto.ErrAESCCMAuthFailed):
		if d.log != nil {
			d.log.Warnf("tag verification failed for %d-byte payload", len(ciphertext))
		}
		return nil, &Error{Kind: KindAuthenticationFailed, Err: err}
	case err != nil:
		if d.log != nil {
			d.log.Warnf("decrypt failed: %v", err)
		}
		return nil, &Error{Kind: KindDecryptError, Err: err}
	}

	if d.log != nil {
		d.log.Debugf("recovered %d-byte plaintext", len(plaintext))
	}
	return plaintext, nil
}

// Recover derives the session keys for p and decrypts its ciphertext.
func (d *Decryptor) Recover(p Payload) ([]byte, error) {
	keys := DeriveSessionKeys(p.AuthKey, p.PhoneRandom, p.WatchRandom)
	defer keys.Wipe()

	if d.log != nil {
		d.log.Trace("session keys derived")
	}
	return d.Decrypt(keys, p.Ciphertext)
}

// RecoverEncoded decodes e and recovers its plaintext.
func (d *Decryptor) RecoverEncoded(e Encoded) ([]byte, error) {
	p, err := e.Decode()
	if err != nil {
		if d.log != nil {
			d.log.Warnf("input rejected: %v", err)
		}
		return nil, err
	}
	return d.Recover(p)
}

var defaultDecryptor = NewDecryptor(DecryptorConfig{})

// Recover runs the whole pipeline with logging disabled.
func Recover(p Payload) ([]byte, error) {
	return defaultDecryptor.Recover(p)
}

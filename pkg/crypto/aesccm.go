// AES-CCM as defined in NIST SP 800-38C and RFC 3610.
//
// The companion-device handshake uses AES-128-CCM with:
//   - Key length: 128 bits (16 bytes)
//   - Tag length: 32 bits (4 bytes)
//   - Nonce length: 12 bytes
//   - q = 3 (length field size)
//
// Nonce and tag sizes are parameters of NewAESCCM so the same code also
// runs the RFC 3610 and SP 800-38C reference vectors.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

const (
	// AESCCMKeySize is the AES-128 key size in bytes.
	AESCCMKeySize = 16

	// CompanionTagSize is the tag length used by encrypt_companion_device.
	// It is far shorter than the usual 16 bytes and must be set explicitly.
	CompanionTagSize = 4

	// CompanionNonceSize is the nonce length used by encrypt_companion_device.
	CompanionNonceSize = 12

	aesBlockSize = 16
)

var (
	ErrAESCCMInvalidKeySize     = errors.New("aesccm: invalid key size, must be 16 bytes")
	ErrAESCCMInvalidNonceSize   = errors.New("aesccm: invalid nonce size, must be 7 to 13 bytes")
	ErrAESCCMInvalidTagSize     = errors.New("aesccm: invalid tag size, must be 4, 6, 8, 10, 12, 14, or 16")
	ErrAESCCMCiphertextTooShort = errors.New("aesccm: ciphertext too short")
	ErrAESCCMCiphertextTooLong  = errors.New("aesccm: ciphertext too long")
	ErrAESCCMAuthFailed         = errors.New("aesccm: message authentication failed")
)

// AESCCM is an AES-128-CCM instance with a fixed nonce and tag size.
// It implements cipher.AEAD.
type AESCCM struct {
	block   cipher.Block
	tagSize int // M
	lenSize int // L = 15 - nonce size
}

var _ cipher.AEAD = (*AESCCM)(nil)

// NewAESCCM returns an AES-128-CCM AEAD.
//
// Parameters:
//   - key: 16-byte AES-128 key
//   - nonceSize: nonce length in bytes (7-13)
//   - tagSize: tag length in bytes (4, 6, 8, 10, 12, 14, or 16)
func NewAESCCM(key []byte, nonceSize, tagSize int) (*AESCCM, error) {
	if len(key) != AESCCMKeySize {
		return nil, ErrAESCCMInvalidKeySize
	}

	lenSize := 15 - nonceSize
	if lenSize < 2 || lenSize > 8 {
		return nil, ErrAESCCMInvalidNonceSize
	}

	if tagSize < 4 || tagSize > 16 || tagSize%2 != 0 {
		return nil, ErrAESCCMInvalidTagSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &AESCCM{
		block:   block,
		tagSize: tagSize,
		lenSize: lenSize,
	}, nil
}

// NewCompanionCCM returns the AEAD used for encrypt_companion_device
// payloads: 12-byte nonce, 4-byte tag.
func NewCompanionCCM(key []byte) (*AESCCM, error) {
	return NewAESCCM(key, CompanionNonceSize, CompanionTagSize)
}

// NonceSize returns the nonce length the AEAD was configured with.
func (c *AESCCM) NonceSize() int {
	return 15 - c.lenSize
}

// Overhead returns the tag length.
func (c *AESCCM) Overhead() int {
	return c.tagSize
}

// maxPayload is the largest plaintext the L-byte length field can encode.
func (c *AESCCM) maxPayload() uint64 {
	if c.lenSize >= 8 {
		return 1<<63 - 1
	}
	return 1<<(8*uint(c.lenSize)) - 1
}

// Seal encrypts and authenticates plaintext, authenticates additionalData
// and appends ciphertext || tag to dst.
//
// Like the standard library AEADs it panics on a wrong nonce length or an
// oversized plaintext.
func (c *AESCCM) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != c.NonceSize() {
		panic("aesccm: incorrect nonce length given to AES-CCM")
	}
	if uint64(len(plaintext)) > c.maxPayload() {
		panic("aesccm: message too large for AES-CCM")
	}

	ret, out := sliceForAppend(dst, len(plaintext)+c.tagSize)

	tag := c.cbcMAC(nonce, plaintext, additionalData)

	s0 := c.counterBlock(nonce, 0)
	c.block.Encrypt(s0[:], s0[:])
	subtle.XORBytes(out[len(plaintext):], tag[:c.tagSize], s0[:c.tagSize])

	c.ctr(nonce, out[:len(plaintext)], plaintext)

	return ret
}

// Open decrypts and verifies ciphertext || tag and appends the plaintext to
// dst. On failure nothing is appended and the scratch plaintext is zeroed.
func (c *AESCCM) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.NonceSize() {
		return nil, ErrAESCCMInvalidNonceSize
	}
	if len(ciphertext) < c.tagSize {
		return nil, ErrAESCCMCiphertextTooShort
	}
	if uint64(len(ciphertext)-c.tagSize) > c.maxPayload() {
		return nil, ErrAESCCMCiphertextTooLong
	}

	data := ciphertext[:len(ciphertext)-c.tagSize]
	sealedTag := ciphertext[len(ciphertext)-c.tagSize:]

	var received [aesBlockSize]byte
	s0 := c.counterBlock(nonce, 0)
	c.block.Encrypt(s0[:], s0[:])
	subtle.XORBytes(received[:c.tagSize], sealedTag, s0[:c.tagSize])

	ret, out := sliceForAppend(dst, len(data))
	c.ctr(nonce, out, data)

	expected := c.cbcMAC(nonce, out, additionalData)
	if subtle.ConstantTimeCompare(received[:c.tagSize], expected[:c.tagSize]) != 1 {
		Wipe(out)
		return nil, ErrAESCCMAuthFailed
	}

	return ret, nil
}

// cbcMAC computes the unencrypted tag T over B_0, the encoded AAD and the
// plaintext (SP 800-38C 6.1).
func (c *AESCCM) cbcMAC(nonce, plaintext, aad []byte) [aesBlockSize]byte {
	// Flags = Reserved(1) || Adata(1) || M'(3) || L'(3)
	var mac [aesBlockSize]byte
	flags := byte((c.tagSize-2)/2)<<3 | byte(c.lenSize-1)
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	mac[0] = flags
	copy(mac[1:], nonce)
	putLength(mac[1+len(nonce):], uint64(len(plaintext)))
	c.block.Encrypt(mac[:], mac[:])

	if len(aad) > 0 {
		var hdr [10]byte
		var n int
		switch {
		case uint64(len(aad)) < (1<<16)-(1<<8):
			binary.BigEndian.PutUint16(hdr[:2], uint16(len(aad)))
			n = 2
		case uint64(len(aad)) < 1<<32:
			hdr[0], hdr[1] = 0xFF, 0xFE
			binary.BigEndian.PutUint32(hdr[2:6], uint32(len(aad)))
			n = 6
		default:
			hdr[0], hdr[1] = 0xFF, 0xFF
			binary.BigEndian.PutUint64(hdr[2:10], uint64(len(aad)))
			n = 10
		}

		// The length header and the first AAD bytes share one block.
		var first [aesBlockSize]byte
		copy(first[:], hdr[:n])
		k := copy(first[n:], aad)
		c.macBlock(&mac, first[:])
		c.macBlocks(&mac, aad[k:])
	}

	c.macBlocks(&mac, plaintext)
	return mac
}

// macBlocks folds data into the CBC-MAC state, zero padding the last block.
func (c *AESCCM) macBlocks(mac *[aesBlockSize]byte, data []byte) {
	for len(data) > 0 {
		var blk [aesBlockSize]byte
		n := copy(blk[:], data)
		data = data[n:]
		c.macBlock(mac, blk[:])
	}
}

func (c *AESCCM) macBlock(mac *[aesBlockSize]byte, blk []byte) {
	subtle.XORBytes(mac[:], mac[:], blk)
	c.block.Encrypt(mac[:], mac[:])
}

// counterBlock builds A_i: Flags(L') || Nonce || i.
func (c *AESCCM) counterBlock(nonce []byte, i uint64) [aesBlockSize]byte {
	var a [aesBlockSize]byte
	a[0] = byte(c.lenSize - 1)
	copy(a[1:], nonce)
	putLength(a[1+len(nonce):], i)
	return a
}

// ctr runs the CCM counter mode starting at A_1. dst and src may be the
// same slice.
func (c *AESCCM) ctr(nonce []byte, dst, src []byte) {
	ctr := c.counterBlock(nonce, 1)
	var ks [aesBlockSize]byte
	for len(src) > 0 {
		c.block.Encrypt(ks[:], ctr[:])
		n := subtle.XORBytes(dst, src, ks[:])
		dst, src = dst[n:], src[n:]
		incrementCounter(ctr[aesBlockSize-c.lenSize:])
	}
}

// putLength writes v big-endian into all of dst.
func putLength(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func incrementCounter(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			break
		}
	}
}

// sliceForAppend extends in by n bytes and returns the whole slice and the
// appended tail.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"golang.org/x/crypto/hkdf"
)

// The feedback chain is the same construction as HKDF-Expand, so RFC 5869
// Appendix A.1 doubles as a known-answer test.
func TestExpandFeedback_RFC5869(t *testing.T) {
	prk, _ := hex.DecodeString("077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")
	expected, _ := hex.DecodeString("3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")

	okm, err := ExpandFeedback(prk, info, 42)
	if err != nil {
		t.Fatalf("ExpandFeedback failed: %v", err)
	}
	if !bytes.Equal(okm, expected) {
		t.Errorf("okm mismatch\ngot:  %x\nwant: %x", okm, expected)
	}
}

func TestExpandFeedback_MatchesHKDFExpand(t *testing.T) {
	key := bytes.Repeat([]byte{0x5a}, SHA256LenBytes)
	label := []byte("miwear-auth")

	for _, length := range []int{1, 16, 32, 33, 64, 96, 100, MaxFeedbackLength} {
		got, err := ExpandFeedback(key, label, length)
		if err != nil {
			t.Fatalf("length %d: ExpandFeedback failed: %v", length, err)
		}
		if len(got) != length {
			t.Fatalf("length %d: got %d bytes", length, len(got))
		}

		want := make([]byte, length)
		if _, err := io.ReadFull(hkdf.Expand(sha256.New, key, label), want); err != nil {
			t.Fatalf("length %d: hkdf.Expand failed: %v", length, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("length %d: output differs from HKDF-Expand", length)
		}
	}
}

func TestExpandFeedback_PrefixStable(t *testing.T) {
	key := []byte("key")
	label := []byte("label")

	long, err := ExpandFeedback(key, label, 96)
	if err != nil {
		t.Fatal(err)
	}
	short, err := ExpandFeedback(key, label, 64)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(long[:64], short) {
		t.Error("64-byte output is not a prefix of the 96-byte output")
	}
}

func TestExpandFeedback_FirstBlock(t *testing.T) {
	key := []byte("key")
	label := []byte("miwear-auth")

	okm, err := ExpandFeedback(key, label, 32)
	if err != nil {
		t.Fatal(err)
	}
	want := HMACSHA256(key, append([]byte("miwear-auth"), 0x01))
	if !bytes.Equal(okm, want[:]) {
		t.Errorf("T(1) mismatch\ngot:  %x\nwant: %x", okm, want[:])
	}
}

func TestExpandFeedback_InvalidLength(t *testing.T) {
	for _, length := range []int{-1, 0, MaxFeedbackLength + 1} {
		if _, err := ExpandFeedback([]byte("k"), nil, length); !errors.Is(err, ErrFeedbackLength) {
			t.Errorf("length %d: got %v, want ErrFeedbackLength", length, err)
		}
	}
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Wipe(b)
	if !bytes.Equal(b, make([]byte, 4)) {
		t.Errorf("buffer not zeroed: %x", b)
	}
	Wipe(nil)
}

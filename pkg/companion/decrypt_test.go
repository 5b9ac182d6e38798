package companion

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/astrobox/companion/pkg/crypto"
	"github.com/pion/logging"
)

const (
	vectorCiphertext = "KrHIRjgsSIVmtHKElJ3ggdxKbRwmsmKxiVQcpn7RIaecxzDIkQQ93gW6tIGb/766w1QBuEKdmh4BojzOhviZtpUv5YI="
	vectorPlaintext  = `companion-device:{"did":"1234567890","model":"miwear.watch.o62"}`

	// Empty plaintext under the same keys: tag only.
	vectorEmptyCiphertext = "rFLpAw=="
)

func vectorEncoded() Encoded {
	return Encoded{
		AuthKey:     vectorAuthKey,
		PhoneRandom: vectorPhoneRandom,
		WatchRandom: vectorWatchRandom,
		Ciphertext:  vectorCiphertext,
	}
}

func TestRecover_ReferenceVector(t *testing.T) {
	p, err := vectorEncoded().Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	plaintext, err := Recover(p)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if string(plaintext) != vectorPlaintext {
		t.Errorf("plaintext mismatch\ngot:  %q\nwant: %q", plaintext, vectorPlaintext)
	}
}

func TestRecover_EmptyPlaintext(t *testing.T) {
	e := vectorEncoded()
	e.Ciphertext = vectorEmptyCiphertext

	plaintext, err := NewDecryptor(DecryptorConfig{}).RecoverEncoded(e)
	if err != nil {
		t.Fatalf("RecoverEncoded failed: %v", err)
	}
	if len(plaintext) != 0 {
		t.Errorf("expected empty plaintext, got %x", plaintext)
	}
}

func TestRecover_BitFlips(t *testing.T) {
	p, err := vectorEncoded().Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	sealed := p.Ciphertext

	for i := 0; i < len(sealed)*8; i++ {
		tampered := append([]byte(nil), sealed...)
		tampered[i/8] ^= 1 << (i % 8)
		p.Ciphertext = tampered

		plaintext, err := Recover(p)
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("bit %d: got %v, want ErrAuthenticationFailed", i, err)
		}
		if plaintext != nil {
			t.Fatalf("bit %d: plaintext released", i)
		}
	}
}

func TestRecover_WrongInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Encoded)
	}{
		{"wrong_authkey", func(e *Encoded) { e.AuthKey = "0123456789abcdeffedcba9876543211" }},
		{"swapped_randoms", func(e *Encoded) { e.PhoneRandom, e.WatchRandom = e.WatchRandom, e.PhoneRandom }},
		{"truncated_tag", func(e *Encoded) {
			raw, _ := base64.StdEncoding.DecodeString(e.Ciphertext)
			e.Ciphertext = base64.StdEncoding.EncodeToString(raw[:len(raw)-1])
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := vectorEncoded()
			tc.mutate(&e)

			_, err := NewDecryptor(DecryptorConfig{}).RecoverEncoded(e)
			if KindOf(err) != KindAuthenticationFailed {
				t.Fatalf("got %v, want kind %v", err, KindAuthenticationFailed)
			}
		})
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	d := NewDecryptor(DecryptorConfig{})
	var keys SessionKeys

	for _, n := range []int{0, 1, crypto.CompanionTagSize - 1} {
		_, err := d.Decrypt(keys, make([]byte, n))
		if !errors.Is(err, ErrDecryptError) {
			t.Fatalf("%d bytes: got %v, want ErrDecryptError", n, err)
		}
		if !errors.Is(err, crypto.ErrAESCCMCiphertextTooShort) {
			t.Errorf("%d bytes: cause not preserved: %v", n, err)
		}
	}
}

func TestRecoverEncoded_InvalidInput(t *testing.T) {
	e := vectorEncoded()
	e.WatchRandom = "hex:0011"

	_, err := NewDecryptor(DecryptorConfig{}).RecoverEncoded(e)
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("got %v, want ErrInvalidEncoding", err)
	}
	if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrDecryptError) {
		t.Errorf("error matches more than one kind: %v", err)
	}
}

func TestRecover_RoundTrip(t *testing.T) {
	var authKey AuthKey
	var phone, watch Nonce
	for i := range authKey {
		authKey[i] = byte(0xa0 + i)
		phone[i] = byte(i)
		watch[i] = byte(0xff - i)
	}

	for _, size := range []int{0, 1, 15, 16, 17, 64, 1000} {
		plaintext := bytes.Repeat([]byte{0x42}, size)

		keys := DeriveSessionKeys(authKey, phone, watch)
		aead, err := crypto.NewCompanionCCM(keys.EncryptionKey[:])
		if err != nil {
			t.Fatalf("NewCompanionCCM failed: %v", err)
		}
		sealed := aead.Seal(nil, keys.PacketNonce[:], plaintext, nil)

		got, err := Recover(Payload{AuthKey: authKey, PhoneRandom: phone, WatchRandom: watch, Ciphertext: sealed})
		if err != nil {
			t.Fatalf("size %d: Recover failed: %v", size, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("size %d: round trip mismatch", size)
		}
	}
}

func TestRecover_Concurrent(t *testing.T) {
	p, err := vectorEncoded().Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	d := NewDecryptor(DecryptorConfig{})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plaintext, err := d.Recover(p)
			if err == nil && string(plaintext) != vectorPlaintext {
				err = errors.New("plaintext mismatch")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

func TestDecryptor_LogsOmitSecrets(t *testing.T) {
	var buf bytes.Buffer
	d := NewDecryptor(DecryptorConfig{
		LoggerFactory: &logging.DefaultLoggerFactory{
			Writer:          &buf,
			DefaultLogLevel: logging.LogLevelTrace,
		},
	})

	if _, err := d.RecoverEncoded(vectorEncoded()); err != nil {
		t.Fatalf("RecoverEncoded failed: %v", err)
	}
	e := vectorEncoded()
	e.AuthKey = "0123456789abcdeffedcba9876543211"
	if _, err := d.RecoverEncoded(e); err == nil {
		t.Fatal("expected authentication failure")
	}

	logs := buf.String()
	if logs == "" {
		t.Fatal("expected log output at trace level")
	}
	for _, secret := range []string{
		vectorEncryptionKey,
		vectorAuthKey,
		"companion-device",
		base64.StdEncoding.EncodeToString([]byte(vectorPlaintext)),
	} {
		if strings.Contains(logs, secret) {
			t.Errorf("logs contain %q:\n%s", secret, logs)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{invalidEncoding(FieldWatchRandom, errNotHex), "companion: watch-random: invalid encoding: not a valid hex string"},
		{&Error{Kind: KindAuthenticationFailed, Err: crypto.ErrAESCCMAuthFailed}, "companion: authentication failed: aesccm: message authentication failed"},
		{ErrDecryptError, "companion: decrypt error"},
	}

	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}

	if KindOf(errors.New("other")) != KindUnknown {
		t.Error("KindOf of a foreign error is not KindUnknown")
	}
}

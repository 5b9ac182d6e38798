package companion

import (
	"encoding/base64"
	"io"
)

// Emit writes plaintext to w: unchanged when raw is set, otherwise as one
// line of standard base64.
func Emit(w io.Writer, plaintext []byte, raw bool) error {
	if raw {
		_, err := w.Write(plaintext)
		return err
	}

	line := make([]byte, base64.StdEncoding.EncodedLen(len(plaintext))+1)
	base64.StdEncoding.Encode(line, plaintext)
	line[len(line)-1] = '\n'
	_, err := w.Write(line)
	return err
}

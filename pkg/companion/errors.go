package companion

import "errors"

// Kind classifies a recovery failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not produced by this package.
	KindUnknown Kind = iota

	// KindInvalidEncoding: an input could not be decoded to the required
	// format or length. Raised before any cryptography runs.
	KindInvalidEncoding

	// KindAuthenticationFailed: the AES-CCM tag did not verify.
	KindAuthenticationFailed

	// KindDecryptError: the ciphertext is structurally malformed.
	KindDecryptError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidEncoding:
		return "invalid encoding"
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindDecryptError:
		return "decrypt error"
	default:
		return "unknown"
	}
}

// Input field names used to tag InvalidEncoding errors.
const (
	FieldAuthKey     = "authkey"
	FieldPhoneRandom = "phone-random"
	FieldWatchRandom = "watch-random"
	FieldCiphertext  = "ciphertext"
)

// Error is the error type returned by every stage of the pipeline.
type Error struct {
	Kind Kind

	// Field names the input that failed to decode. Empty for decrypt-time
	// failures.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := "companion: "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Field == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidEncoding      = &Error{Kind: KindInvalidEncoding}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrDecryptError         = &Error{Kind: KindDecryptError}
)

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func invalidEncoding(field string, cause error) error {
	return &Error{Kind: KindInvalidEncoding, Field: field, Err: cause}
}

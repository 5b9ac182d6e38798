package crypto

import "runtime"

// Wipe zeroes b. This is best-effort; the write is kept alive so the
// compiler does not drop it.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}

// companion-decrypt recovers the plaintext of an encrypt_companion_device
// payload captured during a wearable pairing handshake.
//
// Usage:
//
//	companion-decrypt --authkey HEX --phone-random VALUE --watch-random VALUE --ciphertext BASE64 [--raw-output]
//	companion-decrypt batch --manifest FILE [--workers N] [--raw-dir DIR]
//
// The randoms accept bare hex (32 chars), or a value prefixed with hex:,
// b64: or base64:. The plaintext is printed as base64 unless --raw-output is
// given.
//
// Example:
//
//	companion-decrypt \
//	    --authkey 0123456789abcdeffedcba9876543210 \
//	    --phone-random b64:c2FtcGxlcGhvbmVub25jZQ== \
//	    --watch-random hex:00112233445566778899aabbccddeeff \
//	    --ciphertext BASE64_PAYLOAD
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/astrobox/companion/cmd/companion-decrypt/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

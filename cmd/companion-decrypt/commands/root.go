// Package commands implements the companion-decrypt command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/astrobox/companion/pkg/companion"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// commandError marks a failure of the operation itself, as opposed to a
// usage error.
type commandError struct {
	action string
	err    error
}

func (e *commandError) Error() string { return e.action + " failed: " + e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}

	var ce *commandError
	if errors.As(err, &ce) {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if cmd != nil {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return ExitUsage
}

type rootOptions struct {
	encoded   companion.Encoded
	rawOutput bool
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "companion-decrypt",
		Short:         "Decrypt encrypt_companion_device and print the plaintext in Base64",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(cmd, opts)
		},
	}

	f := root.Flags()
	f.StringVar(&opts.encoded.AuthKey, "authkey", "", "16-byte authkey in hex (prefix with hex: if desired)")
	f.StringVar(&opts.encoded.PhoneRandom, "phone-random", "", "phone random (16B) in hex/base64")
	f.StringVar(&opts.encoded.WatchRandom, "watch-random", "", "watch random (16B) in hex/base64")
	f.StringVar(&opts.encoded.Ciphertext, "ciphertext", "", "Base64 blob copied from encrypt_companion_device")
	f.BoolVar(&opts.rawOutput, "raw-output", false, "write raw plaintext bytes to stdout instead of Base64 text")
	for _, name := range []string{"authkey", "phone-random", "watch-random", "ciphertext"} {
		_ = root.MarkFlagRequired(name)
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "disabled",
		"log verbosity on stderr: "+strings.Join(logLevelNames, ", "))

	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newBatchCmd(opts))
	return root
}

func runDecrypt(cmd *cobra.Command, opts *rootOptions) error {
	lf, err := newLoggerFactory(opts.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dec := companion.NewDecryptor(companion.DecryptorConfig{LoggerFactory: lf})
	plaintext, err := dec.RecoverEncoded(opts.encoded)
	if err != nil {
		return &commandError{action: "decrypt", err: err}
	}

	if err := companion.Emit(cmd.OutOrStdout(), plaintext, opts.rawOutput); err != nil {
		return &commandError{action: "write", err: err}
	}
	return nil
}

var logLevelNames = []string{"disabled", "error", "warn", "info", "debug", "trace"}

var logLevels = map[string]logging.LogLevel{
	"disabled": logging.LogLevelDisabled,
	"error":    logging.LogLevelError,
	"warn":     logging.LogLevelWarn,
	"info":     logging.LogLevelInfo,
	"debug":    logging.LogLevelDebug,
	"trace":    logging.LogLevelTrace,
}

// newLoggerFactory returns nil when logging is disabled.
func newLoggerFactory(level string, w io.Writer) (logging.LoggerFactory, error) {
	l, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if l == logging.LogLevelDisabled {
		return nil, nil
	}
	return &logging.DefaultLoggerFactory{
		Writer:          w,
		DefaultLogLevel: l,
	}, nil
}

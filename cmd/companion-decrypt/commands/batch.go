package commands

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/astrobox/companion/pkg/batch"
)

type batchOptions struct {
	manifest string
	workers  int
	rawDir   string
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Decrypt every capture listed in a YAML manifest",
		Long: `Decrypt every capture listed in a YAML manifest.

Each recovered capture is printed as "<name>\t<base64 plaintext>". With
--raw-dir the plaintexts are written to <dir>/<name>.bin instead and the
file path is printed. Failures are reported on stderr; the command exits
non-zero if any capture failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.manifest, "manifest", "", "path to the YAML capture manifest")
	f.IntVar(&opts.workers, "workers", 0, "captures decrypted in parallel (default: GOMAXPROCS)")
	f.StringVar(&opts.rawDir, "raw-dir", "", "write raw plaintexts into this directory")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *batchOptions) error {
	lf, err := newLoggerFactory(root.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	m, err := batch.LoadManifest(opts.manifest)
	if err != nil {
		return &commandError{action: "batch", err: err}
	}

	if opts.rawDir != "" {
		if err := os.MkdirAll(opts.rawDir, 0o700); err != nil {
			return &commandError{action: "batch", err: err}
		}
	}

	results, runErr := batch.Run(cmd.Context(), m, batch.Options{
		Workers:       opts.workers,
		LoggerFactory: lf,
	})

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "decrypt failed: %s: %v\n", r.Name, r.Err)
			continue
		}

		if opts.rawDir == "" {
			fmt.Fprintf(stdout, "%s\t%s\n", r.Name, base64.StdEncoding.EncodeToString(r.Plaintext))
			continue
		}

		path := filepath.Join(opts.rawDir, r.Name+".bin")
		if err := os.WriteFile(path, r.Plaintext, 0o600); err != nil {
			failed++
			fmt.Fprintf(stderr, "write failed: %s: %v\n", r.Name, err)
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", r.Name, path)
	}

	if runErr != nil {
		return &commandError{action: "batch", err: runErr}
	}
	if failed > 0 {
		return &commandError{action: "batch", err: fmt.Errorf("%d of %d captures failed", failed, len(results))}
	}
	return nil
}

package batch

import (
	"context"
	"runtime"

	"github.com/astrobox/companion/pkg/companion"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"
)

// Options configures Run.
type Options struct {
	// Workers bounds how many captures are recovered at once.
	// Zero or negative means runtime.GOMAXPROCS(0).
	Workers int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Result is the outcome for one capture.
type Result struct {
	Name      string
	Plaintext []byte

	// Err is nil on success. Decoding and decryption failures carry a
	// companion.Kind; captures skipped after cancellation hold the context
	// error.
	Err error
}

// Run recovers every capture in m and returns one Result per capture in
// manifest order. A failing capture never stops the others. If ctx is
// cancelled, captures not yet started are skipped and ctx.Err() is
// returned alongside the partial results.
func Run(ctx context.Context, m *Manifest, opts Options) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var log logging.LeveledLogger
	if opts.LoggerFactory != nil {
		log = opts.LoggerFactory.NewLogger("companion-batch")
	}
	dec := companion.NewDecryptor(companion.DecryptorConfig{LoggerFactory: opts.LoggerFactory})

	results := make([]Result, len(m.Captures))
	for i := range m.Captures {
		results[i].Name = m.Captures[i].Name
	}

	if log != nil {
		log.Infof("recovering %d captures with %d workers", len(m.Captures), workers)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range m.Captures {
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			results[i].Plaintext, results[i].Err = dec.RecoverEncoded(m.Encoded(i))
			if results[i].Err != nil && log != nil {
				log.Warnf("capture %s: %v", results[i].Name, results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if log != nil {
		s := Summarize(results)
		log.Infof("recovered %d of %d captures", s.Recovered, s.Total)
	}

	return results, ctx.Err()
}

// Summary counts results by outcome.
type Summary struct {
	Total     int
	Recovered int

	// Failed counts failures by kind. Skipped captures count as
	// companion.KindUnknown.
	Failed map[companion.Kind]int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:  len(results),
		Failed: make(map[companion.Kind]int),
	}
	for _, r := range results {
		if r.Err == nil {
			s.Recovered++
			continue
		}
		s.Failed[companion.KindOf(r.Err)]++
	}
	return s
}

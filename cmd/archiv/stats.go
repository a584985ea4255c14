package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/INLOpen/archiv/archive"
	"github.com/INLOpen/archiv/core"
	tdigest "github.com/caio/go-tdigest/v4"
	units "github.com/docker/go-units"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// archiveStats summarises the items of one archive.
type archiveStats struct {
	Kind   core.Kind
	Layers []core.CompressionType
	Items  uint64
	Bytes  uint64
	sizes  *tdigest.TDigest
}

// Mean returns the mean item size, 0 for an empty archive.
func (s *archiveStats) Mean() uint64 {
	if s.Items == 0 {
		return 0
	}
	return s.Bytes / s.Items
}

// Quantile returns the estimated item size at quantile q in [0, 1].
func (s *archiveStats) Quantile(q float64) float64 {
	if s.sizes == nil || s.sizes.Count() == 0 {
		return 0
	}
	return s.sizes.Quantile(q)
}

func newStatsCmd(a *app) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "stats FILE...",
		Short: "Report item count, total and mean item size of archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.readOptions()
			if err != nil {
				return err
			}

			// Archives are read concurrently; results are printed in argument order.
			results := make([]*archiveStats, len(args))
			errs := make([]error, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for i, name := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						errs[i] = err
						return nil
					}
					results[i], errs[i] = statsFile(name, opts)
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			var merr *multierror.Error
			for i, name := range args {
				if errs[i] != nil {
					a.logger.Error("Failed to read archive", "file", name, "error", errs[i])
					merr = multierror.Append(merr, fmt.Errorf("%s: %w", name, errs[i]))
					continue
				}
				printStats(out, name, results[i])
			}
			return merr.ErrorOrNil()
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "Number of archives read concurrently")
	return cmd
}

func statsFile(name string, opts archive.ReadOptions) (*archiveStats, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return collectStats(bufio.NewReader(f), opts)
}

// collectStats reads every item of the archive on src.
func collectStats(src io.Reader, opts archive.ReadOptions) (*archiveStats, error) {
	r, err := opts.Stream(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	td, err := tdigest.New()
	if err != nil {
		return nil, fmt.Errorf("tdigest.New failed: %w", err)
	}
	s := &archiveStats{Kind: r.Kind(), Layers: r.Layers(), sizes: td}
	for {
		item, err := r.NextItem()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		n, err := item.Discard()
		item.Close()
		if err != nil {
			return nil, err
		}
		s.Items++
		s.Bytes += uint64(n)
		if err := s.sizes.AddWeighted(float64(n), 1); err != nil {
			return nil, fmt.Errorf("tdigest AddWeighted failed: %w", err)
		}
	}
}

func printStats(w io.Writer, name string, s *archiveStats) {
	fmt.Fprintf(w, "%s: %d items, %d bytes, %d mean size", name, s.Items, s.Bytes, s.Mean())
	if s.Items > 0 {
		fmt.Fprintf(w, " (%s total, p50 %s, p99 %s, %v",
			units.BytesSize(float64(s.Bytes)),
			units.BytesSize(s.Quantile(0.5)),
			units.BytesSize(s.Quantile(0.99)),
			s.Kind,
		)
		for _, l := range s.Layers {
			fmt.Fprintf(w, "+%v", l)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
}

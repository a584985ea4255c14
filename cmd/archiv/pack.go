package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/INLOpen/archiv/archive"
	"github.com/INLOpen/archiv/compressors"
	"github.com/INLOpen/archiv/core"
	"github.com/INLOpen/archiv/sys"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

type packOptions struct {
	kind     core.Kind
	outer    core.CompressionType
	level    int
	write    archive.WriteOptions
	progress bool
	logger   *slog.Logger
}

func newPackCmd(a *app) *cobra.Command {
	var (
		output string
		mode   string
		outer  string
	)
	cmd := &cobra.Command{
		Use:   "pack FILE...",
		Short: "Dump the contents of files into a single archive",
		Long:  "Writes one item per input file, in argument order, to the output file or stdout.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mode") {
				a.cfg.Codec.Mode = mode
			}
			if cmd.Flags().Changed("outer") {
				a.cfg.Codec.Outer = outer
			}
			kind, err := a.cfg.Kind()
			if err != nil {
				return err
			}
			outerType, err := a.cfg.OuterCompression()
			if err != nil {
				return err
			}

			opts := packOptions{
				kind:     kind,
				outer:    outerType,
				level:    a.cfg.Codec.Level,
				write:    a.writeOptions(),
				progress: isTerminal(cmd.ErrOrStderr()),
				logger:   a.logger,
			}
			if output == "" || output == "-" {
				out := cmd.OutOrStdout()
				if isTerminal(out) {
					return fmt.Errorf("refusing to write an archive to a terminal, use -o or redirect stdout")
				}
				return pack(args, out, opts)
			}

			f, err := sys.CreateOutput(output, 0644, sys.DefaultLockTimeout)
			if err != nil {
				return err
			}
			if err := pack(args, f, opts); err != nil {
				_ = f.Abort()
				return err
			}
			return f.Commit()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default stdout)")
	cmd.Flags().StringVar(&mode, "mode", "plain", "Compression mode: plain (whole stream) or item (per item)")
	cmd.Flags().StringVar(&outer, "outer", "none", "Extra outer layer: none, zstd, gzip, lz4, snappy")
	return cmd
}

// pack writes the content of every file as one item of a new archive on out.
func pack(files []string, out io.Writer, opts packOptions) (err error) {
	var outerW io.WriteCloser
	sink := out
	if opts.outer != core.CompressionNone {
		outerW, err = compressors.WrapWriter(opts.outer, out, opts.level)
		if err != nil {
			return err
		}
		sink = outerW
	}
	buffered := bufio.NewWriter(sink)

	w, err := opts.write.Create(buffered, opts.kind)
	if err != nil {
		return err
	}

	var bar *mpb.Bar
	if opts.progress {
		var p *mpb.Progress
		p, bar = progressBar("pack", int64(len(files)))
		defer func() {
			if !bar.Completed() {
				bar.Abort(false)
			}
			p.Wait()
		}()
	}

	var buf bytes.Buffer
	for _, name := range files {
		buf.Reset()
		if err := readFileInto(&buf, name); err != nil {
			return err
		}
		off, err := w.WriteItem(buf.Bytes())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		opts.logger.Debug("Packed file", "file", name, "size", buf.Len(), "offset", off)
		if bar != nil {
			bar.Increment()
		}
	}

	if _, err := w.Finish(); err != nil {
		return err
	}
	if outerW != nil {
		if err := outerW.Close(); err != nil {
			return fmt.Errorf("failed to finish outer %v layer: %w", opts.outer, err)
		}
	}
	opts.logger.Info("Packed archive", "items", len(files), "kind", opts.kind, "outer", opts.outer, "logical_size", w.Offset())
	return nil
}

func readFileInto(buf *bytes.Buffer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := buf.ReadFrom(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func progressBar(prefix string, total int64) (*mpb.Progress, *mpb.Bar) {
	p := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithWidth(80),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	bar := p.AddBar(total,
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(decor.Name(prefix)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	if total == 0 {
		bar.SetTotal(0, true)
	}
	return p, bar
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Package trainer builds zstd dictionaries from the items of existing
// archives.
package trainer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/archiv/archive"
	"github.com/INLOpen/archiv/core"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/dict"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options holds configuration for dictionary training.
type Options struct {
	Limit    int      // Maximum number of samples kept
	DictSize int      // Target dictionary size in bytes
	Level    int      // zstd level the dictionary is tuned for
	Strategy Strategy // Sample replacement rule once Limit is reached
	Seed     uint64   // Seed for StrategyReservoir
	DictID   uint32   // Dictionary ID; 0 derives one from the samples

	Read   archive.ReadOptions // How source archives are opened
	Logger *slog.Logger
	Tracer trace.Tracer // Optional
}

// DefaultOptions keeps 10000 samples and targets a 112640-byte dictionary.
func DefaultOptions() Options {
	return Options{
		Limit:    core.DefaultSampleLimit,
		DictSize: core.DefaultDictSize,
		Level:    core.DefaultCompressionLevel,
		Strategy: StrategyAccumulator,
		Read:     archive.DefaultReadOptions(),
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// CollectSamples reads every item of every source, in order, and returns
// the samples kept by the configured strategy.
func CollectSamples(ctx context.Context, sources []io.Reader, opts Options) ([][]byte, error) {
	sampler, err := NewSampler(opts.Limit, opts.Strategy, opts.Seed)
	if err != nil {
		return nil, err
	}
	logger := opts.logger()
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := sampler.Seen()
		if err := collectFrom(src, opts.Read, sampler); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		logger.Debug("Loaded samples from source", "source", i, "items", sampler.Seen()-before)
	}
	logger.Info("Collected training samples", "items_seen", sampler.Seen(), "samples", len(sampler.Samples()))
	return sampler.Samples(), nil
}

func collectFrom(src io.Reader, readOpts archive.ReadOptions, sampler *Sampler) error {
	r, err := readOpts.Stream(src)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		item, err := r.NextItem()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		buf, err := item.ReadAll()
		item.Close()
		if err != nil {
			return err
		}
		sampler.Add(buf)
	}
}

// TrainSamples builds a zstd-format dictionary from samples.
func TrainSamples(samples [][]byte, opts Options) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples provided for training")
	}
	size := opts.DictSize
	if size <= 0 {
		size = core.DefaultDictSize
	}
	level := opts.Level
	if level <= 0 {
		level = core.DefaultCompressionLevel
	}
	id := opts.DictID
	if id == 0 {
		id = deriveDictID(samples)
	}
	out, err := dict.BuildZstdDict(samples, dict.Options{
		MaxDictSize:    size,
		HashBytes:      6,
		ZstdDictID:     id,
		ZstdDictCompat: true,
		ZstdLevel:      zstd.EncoderLevelFromZstd(level),
	})
	if err != nil {
		return nil, fmt.Errorf("dictionary training failed: %w", err)
	}
	return out, nil
}

// deriveDictID hashes the sample set into the non-reserved dictionary ID
// range [32768, 2^31), so identical samples always yield identical output.
func deriveDictID(samples [][]byte) uint32 {
	const (
		lo = 1 << 15
		hi = 1 << 31
	)
	h := xxhash.New()
	var prefix [8]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(s)))
		_, _ = h.Write(prefix[:])
		_, _ = h.Write(s)
	}
	return uint32(lo + h.Sum64()%(hi-lo))
}

// Train samples items from sources and builds a dictionary from them.
// Training twice over the same sources with the same options produces the
// same sample set.
func Train(ctx context.Context, sources []io.Reader, opts Options) (_ []byte, err error) {
	var span trace.Span
	if opts.Tracer != nil {
		ctx, span = opts.Tracer.Start(ctx, "trainer.Train")
		defer span.End()
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}()
	}

	samples, err := CollectSamples(ctx, sources, opts)
	if err != nil {
		return nil, err
	}
	if span != nil {
		span.SetAttributes(
			attribute.Int("trainer.sources", len(sources)),
			attribute.Int("trainer.samples", len(samples)),
			attribute.String("trainer.strategy", opts.Strategy.String()),
		)
	}

	opts.logger().Info("Training dictionary", "samples", len(samples), "target_size", opts.DictSize)
	out, err := TrainSamples(samples, opts)
	if err != nil {
		return nil, err
	}
	if span != nil {
		span.SetAttributes(attribute.Int("trainer.dict_size", len(out)))
	}
	return out, nil
}

package compressors

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/INLOpen/archiv/core"
	"github.com/klauspost/compress/zstd"
)

// DictionaryKind tells which representation a Dictionary carries.
type DictionaryKind uint8

const (
	DictionaryNone DictionaryKind = iota
	DictionaryRaw
	DictionaryPrepared
)

// String returns the string representation of the DictionaryKind.
func (k DictionaryKind) String() string {
	switch k {
	case DictionaryNone:
		return "none"
	case DictionaryRaw:
		return "raw"
	case DictionaryPrepared:
		return "prepared"
	default:
		return "unknown"
	}
}

// Dictionary is the dictionary choice of a ZstdCodec: nothing, a raw
// dictionary blob digested on every use, or a PreparedDictionary digested
// once. The zero value means no dictionary.
type Dictionary struct {
	kind     DictionaryKind
	raw      []byte
	prepared *PreparedDictionary
}

// NoDictionary returns the empty dictionary choice.
func NoDictionary() Dictionary {
	return Dictionary{}
}

// RawDictionary keeps a private copy of b. Every encoder or decoder built from
// it parses the dictionary again.
func RawDictionary(b []byte) Dictionary {
	if len(b) == 0 {
		return Dictionary{}
	}
	return Dictionary{kind: DictionaryRaw, raw: append([]byte(nil), b...)}
}

// Prepared wraps a digested dictionary handle.
func Prepared(p *PreparedDictionary) Dictionary {
	if p == nil {
		return Dictionary{}
	}
	return Dictionary{kind: DictionaryPrepared, prepared: p}
}

// Kind reports the representation in use.
func (d Dictionary) Kind() DictionaryKind {
	return d.kind
}

// Bytes returns the dictionary content, or nil when there is none.
// The returned slice must not be modified.
func (d Dictionary) Bytes() []byte {
	switch d.kind {
	case DictionaryRaw:
		return d.raw
	case DictionaryPrepared:
		return d.prepared.raw
	default:
		return nil
	}
}

// PreparedDictionary is a dictionary digested once for a fixed compression
// level. It keeps pools of configured encoders and decoders so that building
// a compressor from it is cheap.
//
// A PreparedDictionary is immutable and may be shared by any number of
// goroutines. It is reference counted: every Encoder, FrameEncoder and
// Decoder built from it holds a reference until it is closed, and the pools
// are dropped only after Release has been called and the last reference is
// gone.
type PreparedDictionary struct {
	raw   []byte
	level int

	encoders *core.GenericPool[*zstd.Encoder]
	decoders *core.GenericPool[*zstd.Decoder]

	refCount atomic.Int64
	released atomic.Bool
}

// NewPreparedDictionary digests raw for the given zstd level. The dictionary
// must be in zstd dictionary format, such as the output of the trainer.
//
// Call Release when the returned dictionary is no longer used.
func NewPreparedDictionary(raw []byte, level int) (*PreparedDictionary, error) {
	if len(raw) == 0 {
		return nil, errors.New("dictionary cannot be empty")
	}
	if level <= 0 {
		level = core.DefaultCompressionLevel
	}
	p := &PreparedDictionary{
		raw:   append([]byte(nil), raw...),
		level: level,
	}
	p.refCount.Store(1)

	encOpts := encoderOptions(level, p.raw)
	decOpts := decoderOptions(p.raw)
	p.encoders = core.NewGenericPool(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, encOpts...)
	})
	p.decoders = core.NewGenericPool(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, decOpts...)
	})

	// Build one of each up front: this validates the dictionary and warms the pools.
	enc, err := p.encoders.Get()
	if err != nil {
		return nil, fmt.Errorf("invalid encoder dictionary: %w", err)
	}
	p.encoders.Put(enc)
	dec, err := p.decoders.Get()
	if err != nil {
		return nil, fmt.Errorf("invalid decoder dictionary: %w", err)
	}
	p.decoders.Put(dec)
	return p, nil
}

// Level returns the compression level the dictionary was digested for.
func (p *PreparedDictionary) Level() int {
	return p.level
}

// Len returns the size of the dictionary in bytes.
func (p *PreparedDictionary) Len() int {
	return len(p.raw)
}

// Release marks the dictionary as released. Compressors built earlier keep
// working; new ones fail with core.ErrDictionaryReleased.
func (p *PreparedDictionary) Release() {
	if p == nil {
		return
	}
	if !p.released.CompareAndSwap(false, true) {
		return
	}
	p.releaseRef()
}

// PoolStats counts compressor requests served by a PreparedDictionary.
type PoolStats struct {
	EncoderHits     uint64 // encoders reused from the pool
	EncodersCreated uint64
	DecoderHits     uint64 // decoders reused from the pool
	DecodersCreated uint64
}

// PoolStats reports the pool counters. It must be called before Release.
func (p *PreparedDictionary) PoolStats() PoolStats {
	if p.released.Load() {
		return PoolStats{}
	}
	var st PoolStats
	st.EncoderHits, st.EncodersCreated = p.encoders.GetMetrics()
	st.DecoderHits, st.DecodersCreated = p.decoders.GetMetrics()
	return st
}

// acquireRef takes a reference unless the dictionary is already released.
func (p *PreparedDictionary) acquireRef() bool {
	for {
		if p.released.Load() {
			return false
		}
		n := p.refCount.Load()
		if n <= 0 {
			return false
		}
		if p.refCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (p *PreparedDictionary) releaseRef() {
	n := p.refCount.Add(-1)
	if n == 0 {
		// Last reference: nothing can acquire the pools any more.
		p.encoders = nil
		p.decoders = nil
	} else if n < 0 {
		panic("BUG: prepared dictionary reference count went negative")
	}
}

// refs reports the number of live references, including the owner's.
func (p *PreparedDictionary) refs() int64 {
	return p.refCount.Load()
}

func (p *PreparedDictionary) getEncoder() (*zstd.Encoder, func(*zstd.Encoder), error) {
	if !p.acquireRef() {
		return nil, nil, core.ErrDictionaryReleased
	}
	enc, err := p.encoders.Get()
	if err != nil {
		p.releaseRef()
		return nil, nil, err
	}
	put := func(e *zstd.Encoder) {
		p.encoders.Put(e)
		p.releaseRef()
	}
	return enc, put, nil
}

func (p *PreparedDictionary) getDecoder() (*zstd.Decoder, func(*zstd.Decoder), error) {
	if !p.acquireRef() {
		return nil, nil, core.ErrDictionaryReleased
	}
	dec, err := p.decoders.Get()
	if err != nil {
		p.releaseRef()
		return nil, nil, err
	}
	put := func(d *zstd.Decoder) {
		p.decoders.Put(d)
		p.releaseRef()
	}
	return dec, put, nil
}

package core

// This file centralizes constants related to the archive container format,
// magic numbers and default limits shared by the reader, writer and tools.

// --- Framing ---
const (
	// MarkerSize is the size of the header, of every item length prefix and
	// of the footer.
	MarkerSize = 8
	// HeaderMagicLen is the number of fixed magic bytes preceding the kind byte.
	HeaderMagicLen = 7
)

// HeaderMagic identifies an archive. The eighth header byte is the Kind.
var HeaderMagic = [HeaderMagicLen]byte{0x29, 0xb6, 'a', 'r', 'c', 0, 0}

// FooterSentinel terminates the item sequence. It is written as a little
// endian length prefix and lies above AbsoluteMaxItemSize, so no legal item
// length can produce it.
const FooterSentinel uint64 = 0xffff_ffff_ffff_fff0

// AbsoluteMaxItemSize is the reserved threshold: every configured ceiling must
// be strictly below it. 2^63.9 bytes, over 17 million terabytes.
const AbsoluteMaxItemSize uint64 = 0xf000_0000_0000_0000

// --- Magic numbers of outer compression layers ---
var (
	ZstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	GzipMagic   = []byte{0x1f, 0x8b}
	LZ4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
	SnappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// --- Default Sizes & Limits ---
const (
	// DefaultMaxItemSize is the default per-item ceiling used by readers.
	DefaultMaxItemSize uint64 = 2 * 1024 * 1024 * 1024 // 2 GiB
	// DefaultCompressionLevel is the default zstd level.
	DefaultCompressionLevel = 3
	// DefaultSampleLimit is the default number of items kept for training.
	DefaultSampleLimit = 10000
	// DefaultDictSize is the target size of trained dictionaries.
	DefaultDictSize = 112640
	// DefaultMaxOuterLayers bounds how many nested outer compression layers a
	// reader unwraps before giving up.
	DefaultMaxOuterLayers = 8
)

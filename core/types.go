package core

import "fmt"

// Kind identifies the archive layout. It is stored as the last header byte.
type Kind byte

const (
	// KindPlain archives are one continuous compression stream.
	KindPlain Kind = 0
	// KindItemCompressed archives compress every item as an independent frame.
	KindItemCompressed Kind = 1
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindItemCompressed:
		return "item"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "plain", "stream", "":
		return KindPlain, nil
	case "item", "items", "item-compressed":
		return KindItemCompressed, nil
	default:
		return 0, fmt.Errorf("unknown archive mode %q", s)
	}
}

// CompressionType identifies an outer compression layer wrapped around a
// whole archive.
type CompressionType byte

const (
	CompressionNone   CompressionType = 0
	CompressionSnappy CompressionType = 1
	CompressionLZ4    CompressionType = 2
	CompressionZSTD   CompressionType = 3
	CompressionGzip   CompressionType = 4
)

// String returns the string representation of the CompressionType.
func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	case CompressionGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseCompressionType is the inverse of CompressionType.String.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "none", "":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	case "gzip":
		return CompressionGzip, nil
	default:
		return 0, fmt.Errorf("unknown compression type %q", s)
	}
}

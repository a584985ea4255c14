package archive

import (
	"encoding/binary"

	"github.com/INLOpen/archiv/core"
)

// EncodeHeader returns the 8-byte archive header: the fixed magic followed by
// the kind byte.
func EncodeHeader(kind core.Kind) [core.MarkerSize]byte {
	var header [core.MarkerSize]byte
	copy(header[:], core.HeaderMagic[:])
	header[core.HeaderMagicLen] = byte(kind)
	return header
}

// ParseHeader validates the magic and returns the archive kind.
func ParseHeader(buf [core.MarkerSize]byte) (core.Kind, error) {
	if [core.HeaderMagicLen]byte(buf[:core.HeaderMagicLen]) != core.HeaderMagic {
		return 0, core.ErrMagicMissing
	}
	switch kind := core.Kind(buf[core.HeaderMagicLen]); kind {
	case core.KindPlain, core.KindItemCompressed:
		return kind, nil
	default:
		return 0, core.ErrMagicUnrecognised
	}
}

// EncodeFooter returns the footer sentinel in its on-disk form.
func EncodeFooter() [core.MarkerSize]byte {
	var footer [core.MarkerSize]byte
	binary.LittleEndian.PutUint64(footer[:], core.FooterSentinel)
	return footer
}

// IsFooter reports whether a decoded length prefix is the footer sentinel.
func IsFooter(length uint64) bool {
	return length == core.FooterSentinel
}

func encodeLength(length uint64) [core.MarkerSize]byte {
	var buf [core.MarkerSize]byte
	binary.LittleEndian.PutUint64(buf[:], length)
	return buf
}

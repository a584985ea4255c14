package testutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/INLOpen/archiv/archive"
	"github.com/INLOpen/archiv/compressors"
	"github.com/INLOpen/archiv/core"
	"github.com/stretchr/testify/require"
)

// Items converts strings into item payloads.
func Items(items ...string) [][]byte {
	out := make([][]byte, len(items))
	for i, s := range items {
		out[i] = []byte(s)
	}
	return out
}

// BuildArchive writes items as an archive of the given kind and returns the bytes.
func BuildArchive(t testing.TB, opts archive.WriteOptions, kind core.Kind, items [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := opts.Create(&buf, kind)
	require.NoError(t, err)
	for _, item := range items {
		_, err := w.WriteItem(item)
		require.NoError(t, err)
	}
	_, err = w.Finish()
	require.NoError(t, err)
	return buf.Bytes()
}

// ReadItems opens data and reads every item to the end.
func ReadItems(t testing.TB, opts archive.ReadOptions, data []byte) [][]byte {
	t.Helper()
	items, err := TryReadItems(opts, bytes.NewReader(data))
	require.NoError(t, err)
	return items
}

// TryReadItems is ReadItems returning the first error instead of failing.
func TryReadItems(opts archive.ReadOptions, src io.Reader) ([][]byte, error) {
	r, err := opts.Stream(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	items := [][]byte{}
	for {
		item, err := r.NextItem()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		b, err := item.ReadAll()
		item.Close()
		if err != nil {
			return items, err
		}
		items = append(items, b)
	}
}

// RawFrame describes one length prefix of a hand-built archive body.
type RawFrame struct {
	Length  uint64
	Payload []byte
}

// RawArchive builds an uncompressed archive from explicit length prefixes,
// so tests can declare lengths that disagree with the payload that follows.
// The footer is appended when footer is true.
func RawArchive(kind core.Kind, frames []RawFrame, footer bool) []byte {
	var buf bytes.Buffer
	header := archive.EncodeHeader(kind)
	buf.Write(header[:])
	var prefix [core.MarkerSize]byte
	for _, f := range frames {
		binary.LittleEndian.PutUint64(prefix[:], f.Length)
		buf.Write(prefix[:])
		buf.Write(f.Payload)
	}
	if footer {
		f := archive.EncodeFooter()
		buf.Write(f[:])
	}
	return buf.Bytes()
}

// WrapOuter compresses data with one outer layer of type t.
func WrapOuter(t testing.TB, typ core.CompressionType, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := compressors.WrapWriter(typ, &buf, core.DefaultCompressionLevel)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Documents returns n small JSON documents sharing most of their structure,
// the kind of input dictionaries help with.
func Documents(n int) [][]byte {
	hosts := []string{"server-a", "server-b", "server-c", "edge-01"}
	regions := []string{"us-east-1", "eu-west-1", "ap-south-1"}
	docs := make([][]byte, n)
	for i := range docs {
		docs[i] = []byte(fmt.Sprintf(
			`{"metric":"cpu.usage","tags":{"host":%q,"region":%q},"timestamp":%d,"fields":{"value":%d.%d,"idle":%d}}`,
			hosts[i%len(hosts)], regions[i%len(regions)], 1678886400000000000+int64(i)*15e9, i%100, i%10, (i*7)%100,
		))
	}
	return docs
}

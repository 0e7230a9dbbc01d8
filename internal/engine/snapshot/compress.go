package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"
)

// compressSection compresses raw section bytes with the given section flag
// (SecFlagSnappy or SecFlagLZ4) and returns the compressed bytes. A flag of
// 0 returns raw unchanged, matching this lineage's "none" passthrough
// convention in its cache compression helper.
func compressSection(raw []byte, flag uint16) ([]byte, error) {
	switch flag {
	case SecFlagSnappy:
		return snappy.Encode(nil, raw), nil
	case SecFlagLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			w.Close()
			return nil, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), nil
	case 0:
		return raw, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown section compression flag 0x%04x", flag)
	}
}

// decompressSection reverses compressSection given the entry's flags and
// uncompressed length.
func decompressSection(compressed []byte, flags uint16, uncompressedLength uint32) ([]byte, error) {
	switch {
	case flags&SecFlagSnappy != 0:
		decompressed, err := snappy.Decode(make([]byte, 0, uncompressedLength), compressed)
		if err != nil {
			return nil, fmt.Errorf("snappy decompression failed: %w", err)
		}
		return decompressed, nil
	case flags&SecFlagLZ4 != 0:
		r := lz4.NewReader(bytes.NewReader(compressed))
		decompressed, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return decompressed, nil
	default:
		return compressed, nil
	}
}

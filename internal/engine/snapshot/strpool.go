package snapshot

import "encoding/binary"

// StrPool is the zero-copy view over the StrPool section: a sequence of
// length-prefixed byte strings. An offset into the pool points at the
// 4-byte length prefix of a record; FindLit programs, option pools, and
// pattern literals all reference strings this way.
type StrPool struct {
	data []byte
}

// ParseStrPool wraps raw bytes as a StrPool view.
func ParseStrPool(data []byte) StrPool {
	return StrPool{data: data}
}

// Get decodes the string record at offset. Returns false if offset or the
// declared length runs past the pool's bounds.
func (p StrPool) Get(offset uint32) (string, bool) {
	if int(offset)+4 > len(p.data) {
		return "", false
	}
	n := binary.LittleEndian.Uint32(p.data[offset : offset+4])
	start := int(offset) + 4
	end := start + int(n)
	if end > len(p.data) {
		return "", false
	}
	return string(p.data[start:end]), true
}

// StrPoolBuilder accumulates strings for emission, deduplicating identical
// entries so repeated literals (hostnames, redirect resource names) share
// one record.
type StrPoolBuilder struct {
	buf     []byte
	offsets map[string]uint32
}

// Intern appends s if not already present and returns its pool offset.
func (b *StrPoolBuilder) Intern(s string) uint32 {
	if b.offsets == nil {
		b.offsets = make(map[string]uint32)
	}
	if off, ok := b.offsets[s]; ok {
		return off
	}
	offset := uint32(len(b.buf))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, s...)
	b.offsets[s] = offset
	return offset
}

// Build returns the accumulated section bytes.
func (b *StrPoolBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

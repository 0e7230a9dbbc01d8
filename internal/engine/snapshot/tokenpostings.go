package snapshot

import "encoding/binary"

// TokenPostings is the zero-copy view over the TokenPostings section: at
// each offset recorded by a TokenDict entry, a 4-byte rule count followed
// by that many LEB128 delta-encoded, ascending rule indices.
type TokenPostings struct {
	data []byte
}

// ParseTokenPostings wraps raw bytes as a TokenPostings view.
func ParseTokenPostings(data []byte) TokenPostings {
	return TokenPostings{data: data}
}

// Get decodes the rule-index list recorded at offset.
func (t TokenPostings) Get(offset uint32, count uint32) []uint32 {
	if int(offset)+4 > len(t.data) {
		return nil
	}
	return DecodePostingList(t.data, int(offset)+4, count)
}

// TokenPostingsBuilder accumulates posting lists for emission.
type TokenPostingsBuilder struct {
	buf []byte
}

// Add appends one ascending, deduplicated rule-index list and returns its
// byte offset.
func (b *TokenPostingsBuilder) Add(ruleIndices []uint32) uint32 {
	offset := uint32(len(b.buf))
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ruleIndices)))
	b.buf = append(b.buf, countBuf[:]...)
	b.buf = EncodePostingList(b.buf, ruleIndices)
	return offset
}

// Build returns the accumulated section bytes.
func (b *TokenPostingsBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

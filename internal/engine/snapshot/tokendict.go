package snapshot

import "encoding/binary"

const (
	tokenDictHeaderSize = 16
	tokenDictEntrySize  = 12
)

// TokenEntry is one resolved token-dictionary lookup.
type TokenEntry struct {
	PostingsOffset uint32
	RuleCount      uint32
}

// TokenDict is a zero-copy, open-addressed hash table mapping a 32-bit token
// hash to (postings_offset, rule_count). Layout: 16-byte header (capacity,
// count, seed_lo, reserved) followed by capacity entries of 12 bytes
// (token_hash, postings_offset, rule_count); a slot is empty iff
// token_hash==0 (token hashes are never zero, see hashutil.HashToken).
type TokenDict struct {
	data     []byte
	capacity uint32
	count    uint32
}

// NewTokenDict wraps raw bytes as a TokenDict view.
func NewTokenDict(data []byte) (TokenDict, bool) {
	if len(data) < tokenDictHeaderSize {
		return TokenDict{}, false
	}
	capacity := binary.LittleEndian.Uint32(data[0:4])
	count := binary.LittleEndian.Uint32(data[4:8])
	need := tokenDictHeaderSize + int(capacity)*tokenDictEntrySize
	if len(data) < need {
		return TokenDict{}, false
	}
	return TokenDict{data: data, capacity: capacity, count: count}, true
}

func (t TokenDict) Count() uint32 { return t.count }

// Lookup probes linearly from tokenHash & mask until it finds a match or the
// zero-hash empty sentinel.
func (t TokenDict) Lookup(tokenHash uint32) (TokenEntry, bool) {
	if t.capacity == 0 {
		return TokenEntry{}, false
	}
	mask := t.capacity - 1
	idx := tokenHash & mask
	for i := uint32(0); i < t.capacity; i++ {
		base := tokenDictHeaderSize + int(idx)*tokenDictEntrySize
		entryHash := binary.LittleEndian.Uint32(t.data[base : base+4])
		if entryHash == 0 {
			return TokenEntry{}, false
		}
		if entryHash == tokenHash {
			return TokenEntry{
				PostingsOffset: binary.LittleEndian.Uint32(t.data[base+4 : base+8]),
				RuleCount:      binary.LittleEndian.Uint32(t.data[base+8 : base+12]),
			}, true
		}
		idx = (idx + 1) & mask
	}
	return TokenEntry{}, false
}

// BuildTokenDict encodes entries keyed by token hash into the TOKEN_DICT
// layout.
func BuildTokenDict(entries map[uint32]TokenEntry, seedLo uint32) []byte {
	capacity := ComputeCapacity(len(entries))
	buf := make([]byte, tokenDictHeaderSize+int(capacity)*tokenDictEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], capacity)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(entries)))
	binary.LittleEndian.PutUint32(buf[8:12], seedLo)

	mask := capacity - 1
	for hash, entry := range entries {
		idx := hash & mask
		for {
			base := tokenDictHeaderSize + int(idx)*tokenDictEntrySize
			existing := binary.LittleEndian.Uint32(buf[base : base+4])
			if existing == 0 {
				binary.LittleEndian.PutUint32(buf[base:base+4], hash)
				binary.LittleEndian.PutUint32(buf[base+4:base+8], entry.PostingsOffset)
				binary.LittleEndian.PutUint32(buf[base+8:base+12], entry.RuleCount)
				break
			}
			idx = (idx + 1) & mask
		}
	}
	return buf
}

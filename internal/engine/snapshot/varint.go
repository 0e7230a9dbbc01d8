package snapshot

// putUvarint and the decode helpers below implement the LEB128 varint
// encoding used for delta-encoded posting lists. encoding/binary.PutUvarint
// already implements this exact format, so posting lists are built and read
// with it directly rather than a hand-rolled reimplementation.

import "encoding/binary"

// EncodePostingList delta-encodes an ascending, deduplicated list of rule
// indices as LEB128 varints, appending into dst.
func EncodePostingList(dst []byte, ruleIndices []uint32) []byte {
	var buf [binary.MaxVarintLen64]byte
	prev := uint32(0)
	for i, idx := range ruleIndices {
		var delta uint64
		if i == 0 {
			delta = uint64(idx)
		} else {
			delta = uint64(idx - prev)
		}
		n := binary.PutUvarint(buf[:], delta)
		dst = append(dst, buf[:n]...)
		prev = idx
	}
	return dst
}

// DecodePostingList decodes count delta-encoded rule indices starting at
// offset within data, summing deltas into absolute rule indices. Returns nil
// if the data is malformed or runs out of bounds, matching the matcher's
// total-failure-safe contract (callers fall back to treating the posting
// list as empty rather than reading out of bounds).
func DecodePostingList(data []byte, offset int, count uint32) []uint32 {
	if offset < 0 || offset > len(data) {
		return nil
	}
	result := make([]uint32, 0, count)
	pos := offset
	var cur uint32
	for i := uint32(0); i < count; i++ {
		delta, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return nil
		}
		pos += n
		if i == 0 {
			cur = uint32(delta)
		} else {
			cur += uint32(delta)
		}
		result = append(result, cur)
	}
	return result
}

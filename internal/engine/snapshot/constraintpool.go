package snapshot

import "encoding/binary"

// DomainConstraintPool is the zero-copy view over the
// DomainConstraintPool section. At a given constraint_offset it stores
// (include_count:u32, exclude_count:u32) followed by include_count+
// exclude_count 64-bit hashes (lo:u32, hi:u32 each), include hashes first.
type DomainConstraintPool struct {
	data []byte
}

// ParseDomainConstraintPool wraps raw bytes as a DomainConstraintPool view.
func ParseDomainConstraintPool(data []byte) DomainConstraintPool {
	return DomainConstraintPool{data: data}
}

// DomainConstraint is a decoded include/exclude hash pair list.
type DomainConstraint struct {
	Include []uint64
	Exclude []uint64
}

// Get decodes the constraint record at offset. Returns false if offset lies
// out of range, matching the matcher's clamp-to-Allow failure contract.
func (p DomainConstraintPool) Get(offset uint32) (DomainConstraint, bool) {
	if offset == NoConstraint {
		return DomainConstraint{}, false
	}
	if int(offset)+8 > len(p.data) {
		return DomainConstraint{}, false
	}
	includeCount := binary.LittleEndian.Uint32(p.data[offset : offset+4])
	excludeCount := binary.LittleEndian.Uint32(p.data[offset+4 : offset+8])
	pos := int(offset) + 8
	need := pos + int(includeCount+excludeCount)*8
	if need > len(p.data) {
		return DomainConstraint{}, false
	}

	readHashes := func(n uint32) []uint64 {
		out := make([]uint64, n)
		for i := uint32(0); i < n; i++ {
			lo := binary.LittleEndian.Uint32(p.data[pos : pos+4])
			hi := binary.LittleEndian.Uint32(p.data[pos+4 : pos+8])
			out[i] = uint64(hi)<<32 | uint64(lo)
			pos += 8
		}
		return out
	}

	include := readHashes(includeCount)
	exclude := readHashes(excludeCount)
	return DomainConstraint{Include: include, Exclude: exclude}, true
}

// DomainConstraintBuilder accumulates constraint records for emission.
type DomainConstraintBuilder struct {
	buf []byte
}

// Add appends one constraint record and returns its byte offset.
func (b *DomainConstraintBuilder) Add(include, exclude []uint64) uint32 {
	offset := uint32(len(b.buf))
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(include)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(exclude)))
	b.buf = append(b.buf, header[:]...)
	var hashBuf [8]byte
	for _, h := range include {
		binary.LittleEndian.PutUint32(hashBuf[0:4], uint32(h))
		binary.LittleEndian.PutUint32(hashBuf[4:8], uint32(h>>32))
		b.buf = append(b.buf, hashBuf[:]...)
	}
	for _, h := range exclude {
		binary.LittleEndian.PutUint32(hashBuf[0:4], uint32(h))
		binary.LittleEndian.PutUint32(hashBuf[4:8], uint32(h>>32))
		b.buf = append(b.buf, hashBuf[:]...)
	}
	return offset
}

// Build returns the accumulated section bytes.
func (b *DomainConstraintBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

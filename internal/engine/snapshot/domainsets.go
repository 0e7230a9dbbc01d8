package snapshot

import "encoding/binary"

// DomainSets is the decoded view of the DomainSets section: a block
// DomainHashSet, an allow DomainHashSet, and a posting area shared by both.
// Layout: [u32 block_table_len][block hashmap64 bytes][u32 allow_table_len]
// [allow hashmap64 bytes][posting area: remaining bytes]. Each hash-table
// value is an offset into the posting area; the posting area stores, at
// that offset, a 4-byte rule count followed by LEB128 delta-encoded rule
// indices.
type DomainSets struct {
	Block    DomainHashSet
	Allow    DomainHashSet
	postings []byte
}

// ParseDomainSets decodes the section.
func ParseDomainSets(data []byte) (DomainSets, bool) {
	if len(data) < 4 {
		return DomainSets{}, false
	}
	blockLen := int(binary.LittleEndian.Uint32(data[0:4]))
	pos := 4
	if pos+blockLen > len(data) {
		return DomainSets{}, false
	}
	block, ok := NewDomainHashSet(data[pos : pos+blockLen])
	if !ok {
		return DomainSets{}, false
	}
	pos += blockLen

	if pos+4 > len(data) {
		return DomainSets{}, false
	}
	allowLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+allowLen > len(data) {
		return DomainSets{}, false
	}
	allow, ok := NewDomainHashSet(data[pos : pos+allowLen])
	if !ok {
		return DomainSets{}, false
	}
	pos += allowLen

	return DomainSets{Block: block, Allow: allow, postings: data[pos:]}, true
}

// DomainPostings decodes the rule-index list stored at offset in the
// posting area.
func (d DomainSets) DomainPostings(offset uint32) []uint32 {
	if int(offset)+4 > len(d.postings) {
		return nil
	}
	count := binary.LittleEndian.Uint32(d.postings[offset : offset+4])
	return DecodePostingList(d.postings, int(offset)+4, count)
}

// BuildDomainSets encodes the DomainSets section from block/allow entries
// (domain hash -> list of rule indices, each list ascending and
// deduplicated by the caller) using the shared seeds.
func BuildDomainSets(block, allow map[uint64][]uint32, seedLo, seedHi uint32) []byte {
	var postings []byte
	blockOffsets := make(map[uint64]uint32, len(block))
	allowOffsets := make(map[uint64]uint32, len(allow))

	emit := func(set map[uint64][]uint32, offsets map[uint64]uint32) {
		for key, ruleIndices := range set {
			offsets[key] = uint32(len(postings))
			var countBuf [4]byte
			binary.LittleEndian.PutUint32(countBuf[:], uint32(len(ruleIndices)))
			postings = append(postings, countBuf[:]...)
			postings = EncodePostingList(postings, ruleIndices)
		}
	}
	emit(block, blockOffsets)
	emit(allow, allowOffsets)

	blockTable := BuildDomainHashSet(blockOffsets, seedLo, seedHi)
	allowTable := BuildDomainHashSet(allowOffsets, seedLo, seedHi)

	out := make([]byte, 0, 8+len(blockTable)+len(allowTable)+len(postings))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(blockTable)))
	out = append(out, lenBuf[:]...)
	out = append(out, blockTable...)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(allowTable)))
	out = append(out, lenBuf[:]...)
	out = append(out, allowTable...)
	out = append(out, postings...)
	return out
}

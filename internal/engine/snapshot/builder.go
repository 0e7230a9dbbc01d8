package snapshot

import (
	"encoding/binary"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
)

// SectionData pairs a section id with its already-encoded body bytes and
// the compression flags (if any) to record for it in the directory. The
// compiler's emission stage is responsible for choosing which of the large,
// repetitive sections (string pool, pattern program blob) to compress; see
// compressSection.
type SectionData struct {
	ID                 SectionID
	Body               []byte
	Flags              uint16
	UncompressedLength uint32
}

// Builder assembles a complete UBX1 snapshot byte stream from a set of
// already-encoded section bodies, in the order they are added. Emission
// order follows the compiler's natural dependency order (string pool and
// hash tables before anything that references them); the loader does not
// require a particular directory order.
type Builder struct {
	sections []SectionData
	buildID  uint32
	withCRC  bool
}

// NewBuilder creates an empty snapshot builder. buildID is a caller-supplied
// identifier (the low 32 bits of a build UUID, see the compiler's build
// identity convention) that distinguishes otherwise byte-identical
// snapshots for cache invalidation purposes without affecting section
// dedup.
func NewBuilder(buildID uint32, withCRC32 bool) *Builder {
	return &Builder{buildID: buildID, withCRC: withCRC32}
}

// AddSection appends a section whose bytes are already encoded and
// (optionally) compressed by the caller.
func (b *Builder) AddSection(s SectionData) {
	b.sections = append(b.sections, s)
}

// Build encodes the header, section directory, and all section bodies into
// one contiguous, 4-byte-aligned byte stream.
func (b *Builder) Build() []byte {
	dirOffset := uint32(HeaderSize)
	dirBytes := uint32(len(b.sections)) * SectionEntrySize
	pos := dirOffset + dirBytes

	entries := make([]SectionEntry, len(b.sections))
	bodies := make([][]byte, len(b.sections))
	for i, s := range b.sections {
		if pos%4 != 0 {
			pos += 4 - pos%4
		}
		uncompressed := s.UncompressedLength
		if s.Flags&(SecFlagSnappy|SecFlagLZ4) == 0 {
			uncompressed = uint32(len(s.Body))
		}
		entries[i] = SectionEntry{
			ID:                 s.ID,
			Flags:              s.Flags,
			Offset:             pos,
			Length:             uint32(len(s.Body)),
			UncompressedLength: uncompressed,
		}
		bodies[i] = s.Body
		pos += uint32(len(s.Body))
	}
	total := int(pos)

	out := make([]byte, total)

	header := Header{
		Version:          Version,
		HeaderBytes:      HeaderSize,
		SectionCount:     uint32(len(b.sections)),
		SectionDirOffset: dirOffset,
		SectionDirBytes:  dirBytes,
		BuildID:          b.buildID,
	}
	if b.withCRC {
		header.Flags |= FlagHasCRC32
	}
	encodeHeader(out[0:HeaderSize], header)

	dirPos := int(dirOffset)
	for _, e := range entries {
		encodeSectionEntry(out[dirPos:dirPos+SectionEntrySize], e)
		dirPos += SectionEntrySize
	}

	for i, e := range entries {
		copy(out[e.Offset:e.Offset+e.Length], bodies[i])
	}

	if b.withCRC {
		scratch := make([]byte, len(out))
		copy(scratch, out)
		for i := 28; i < 32; i++ {
			scratch[i] = 0
		}
		crc := hashutil.CRC32(scratch)
		binary.LittleEndian.PutUint32(out[28:32], crc)
	}

	return out
}

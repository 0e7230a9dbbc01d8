package snapshot

import "encoding/binary"

const patternEntrySize = 24

// AnchorKind is a compiled pattern's anchor classification.
type AnchorKind uint8

const (
	AnchorNone AnchorKind = iota
	AnchorLeft
	AnchorHostname
)

// PatternEntry is one decoded pattern-pool record.
type PatternEntry struct {
	ProgOffset uint32
	ProgLen    uint16
	Anchor     AnchorKind
	Flags      uint8
	HostHashLo uint32
	HostHashHi uint32
}

// HasHostHash reports whether the entry carries a recorded host hash (used
// by the pattern VM's HostAnchor opcode).
func (p PatternEntry) HasHostHash() bool {
	return p.HostHashLo != 0 || p.HostHashHi != 0
}

// PatternPool is the zero-copy view over the PatternPool section: an array
// of pattern entries followed by the program bytecode blob. Layout: [u32
// entry_count][entries, 24 bytes each][program bytes: remaining].
type PatternPool struct {
	entries []byte
	count   uint32
	program []byte
}

// ParsePatternPool decodes the section.
func ParsePatternPool(data []byte) (PatternPool, bool) {
	if len(data) < 4 {
		return PatternPool{}, false
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	entriesEnd := 4 + int(count)*patternEntrySize
	if entriesEnd > len(data) {
		return PatternPool{}, false
	}
	return PatternPool{
		entries: data[4:entriesEnd],
		count:   count,
		program: data[entriesEnd:],
	}, true
}

// GetPattern returns the decoded entry for pattern id, or false if id is out
// of range.
func (p PatternPool) GetPattern(id uint32) (PatternEntry, bool) {
	if id >= p.count {
		return PatternEntry{}, false
	}
	base := int(id) * patternEntrySize
	e := p.entries[base : base+patternEntrySize]
	return PatternEntry{
		ProgOffset: binary.LittleEndian.Uint32(e[0:4]),
		ProgLen:    binary.LittleEndian.Uint16(e[4:6]),
		Anchor:     AnchorKind(e[6]),
		Flags:      e[7],
		HostHashLo: binary.LittleEndian.Uint32(e[8:12]),
		HostHashHi: binary.LittleEndian.Uint32(e[12:16]),
	}, true
}

// GetProgram returns the bytecode slice for entry.
func (p PatternPool) GetProgram(entry PatternEntry) []byte {
	start := entry.ProgOffset
	end := uint64(start) + uint64(entry.ProgLen)
	if end > uint64(len(p.program)) {
		return nil
	}
	return p.program[start:end]
}

// PatternBuilder accumulates pattern entries and their program bytecode for
// emission.
type PatternBuilder struct {
	entries []PatternEntry
	program []byte
}

// AddProgram appends program bytes for a new pattern entry and returns its
// id.
func (b *PatternBuilder) AddProgram(anchor AnchorKind, flags uint8, hostHashLo, hostHashHi uint32, program []byte) uint32 {
	id := uint32(len(b.entries))
	b.entries = append(b.entries, PatternEntry{
		ProgOffset: uint32(len(b.program)),
		ProgLen:    uint16(len(program)),
		Anchor:     anchor,
		Flags:      flags,
		HostHashLo: hostHashLo,
		HostHashHi: hostHashHi,
	})
	b.program = append(b.program, program...)
	return id
}

// Build encodes the accumulated entries into the PatternPool section bytes.
func (b *PatternBuilder) Build() []byte {
	out := make([]byte, 4, 4+len(b.entries)*patternEntrySize+len(b.program))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(b.entries)))
	for _, e := range b.entries {
		var buf [patternEntrySize]byte
		binary.LittleEndian.PutUint32(buf[0:4], e.ProgOffset)
		binary.LittleEndian.PutUint16(buf[4:6], e.ProgLen)
		buf[6] = byte(e.Anchor)
		buf[7] = e.Flags
		binary.LittleEndian.PutUint32(buf[8:12], e.HostHashLo)
		binary.LittleEndian.PutUint32(buf[12:16], e.HostHashHi)
		out = append(out, buf[:]...)
	}
	out = append(out, b.program...)
	return out
}

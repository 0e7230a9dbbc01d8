package snapshot

import "encoding/binary"

// Selector entry flag bits, shared across the four selector-pool sections.
const (
	SelectorFlagException uint32 = 1 << 0
	SelectorFlagGeneric   uint32 = 1 << 1
)

const selectorEntrySize = 16

// SelectorEntry is one decoded record from a selector pool: a primary text
// (CSS selector, scriptlet name, response-header name, or procedural
// selector), an optional secondary text (scriptlet args joined, procedural
// operation text; NoOption if unused), flags, and the same domain
// constraint offset scheme the rules table uses (NoConstraint if unscoped).
type SelectorEntry struct {
	TextOffset       uint32
	ExtraOffset      uint32
	Flags            uint32
	ConstraintOffset uint32
}

// SelectorPool is the zero-copy view shared by the ResponseHeaderRules,
// CosmeticRules, ProceduralRules, and ScriptletRules sections: each is an
// independent instance of the same dense 16-byte-entry array, addressed by
// the dedicated index the matcher scans linearly per domain constraint
// (these sections have no hash index of their own; the domain constraint
// pool narrows candidates).
type SelectorPool struct{ data []byte }

// ParseSelectorPool wraps raw bytes as a SelectorPool view.
func ParseSelectorPool(data []byte) SelectorPool { return SelectorPool{data: data} }

// Count returns the number of entries held.
func (p SelectorPool) Count() int { return len(p.data) / selectorEntrySize }

// Get decodes the entry at index.
func (p SelectorPool) Get(index int) (SelectorEntry, bool) {
	base := index * selectorEntrySize
	if index < 0 || base+selectorEntrySize > len(p.data) {
		return SelectorEntry{}, false
	}
	e := p.data[base : base+selectorEntrySize]
	return SelectorEntry{
		TextOffset:       binary.LittleEndian.Uint32(e[0:4]),
		ExtraOffset:      binary.LittleEndian.Uint32(e[4:8]),
		Flags:            binary.LittleEndian.Uint32(e[8:12]),
		ConstraintOffset: binary.LittleEndian.Uint32(e[12:16]),
	}, true
}

// All returns every decoded entry, for the matcher's linear domain scan.
func (p SelectorPool) All() []SelectorEntry {
	n := p.Count()
	out := make([]SelectorEntry, 0, n)
	for i := 0; i < n; i++ {
		e, _ := p.Get(i)
		out = append(out, e)
	}
	return out
}

// SelectorPoolBuilder accumulates selector-pool entries for emission.
type SelectorPoolBuilder struct{ buf []byte }

// Add appends one entry and returns its dense index.
func (b *SelectorPoolBuilder) Add(e SelectorEntry) uint32 {
	id := uint32(len(b.buf) / selectorEntrySize)
	var buf [selectorEntrySize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.TextOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.ExtraOffset)
	binary.LittleEndian.PutUint32(buf[8:12], e.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], e.ConstraintOffset)
	b.buf = append(b.buf, buf[:]...)
	return id
}

// Build returns the accumulated section bytes.
func (b *SelectorPoolBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

package snapshot

import "encoding/binary"

// Redirect resource flag bits.
const (
	RedirectFlagInline uint16 = 1 << 0
)

// RedirectEntry is one decoded redirect-resources record: the requested
// resource name and its resolved replacement-content path, both string-pool
// offsets.
type RedirectEntry struct {
	NameOffset uint32
	PathOffset uint32
	MimeID     uint16
	Flags      uint16
}

const redirectEntrySize = 12

// RedirectResources is the zero-copy view over the RedirectResources
// section: a dense array of 12-byte entries, indexed by option id.
type RedirectResources struct{ data []byte }

func ParseRedirectResources(data []byte) RedirectResources { return RedirectResources{data: data} }

func (r RedirectResources) Get(id uint32) (RedirectEntry, bool) {
	base := int(id) * redirectEntrySize
	if base+redirectEntrySize > len(r.data) {
		return RedirectEntry{}, false
	}
	e := r.data[base : base+redirectEntrySize]
	return RedirectEntry{
		NameOffset: binary.LittleEndian.Uint32(e[0:4]),
		PathOffset: binary.LittleEndian.Uint32(e[4:8]),
		MimeID:     binary.LittleEndian.Uint16(e[8:10]),
		Flags:      binary.LittleEndian.Uint16(e[10:12]),
	}, true
}

// RedirectResourcesBuilder accumulates redirect entries for emission.
type RedirectResourcesBuilder struct{ buf []byte }

func (b *RedirectResourcesBuilder) Add(e RedirectEntry) uint32 {
	id := uint32(len(b.buf) / redirectEntrySize)
	var buf [redirectEntrySize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.NameOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.PathOffset)
	binary.LittleEndian.PutUint16(buf[8:10], e.MimeID)
	binary.LittleEndian.PutUint16(buf[10:12], e.Flags)
	b.buf = append(b.buf, buf[:]...)
	return id
}

func (b *RedirectResourcesBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

// Removeparam spec flag bits.
const (
	RemoveparamFlagNegate uint32 = 1 << 0
	RemoveparamFlagRegex  uint32 = 1 << 1
)

// RemoveparamEntry is one decoded removeparam spec: a comma-joined parameter
// key list in the string pool, plus behavior flags.
type RemoveparamEntry struct {
	KeysOffset uint32
	Flags      uint32
}

const removeparamEntrySize = 8

type RemoveparamSpecs struct{ data []byte }

func ParseRemoveparamSpecs(data []byte) RemoveparamSpecs { return RemoveparamSpecs{data: data} }

func (r RemoveparamSpecs) Get(id uint32) (RemoveparamEntry, bool) {
	base := int(id) * removeparamEntrySize
	if base+removeparamEntrySize > len(r.data) {
		return RemoveparamEntry{}, false
	}
	e := r.data[base : base+removeparamEntrySize]
	return RemoveparamEntry{
		KeysOffset: binary.LittleEndian.Uint32(e[0:4]),
		Flags:      binary.LittleEndian.Uint32(e[4:8]),
	}, true
}

type RemoveparamSpecsBuilder struct{ buf []byte }

func (b *RemoveparamSpecsBuilder) Add(e RemoveparamEntry) uint32 {
	id := uint32(len(b.buf) / removeparamEntrySize)
	var buf [removeparamEntrySize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.KeysOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.Flags)
	b.buf = append(b.buf, buf[:]...)
	return id
}

func (b *RemoveparamSpecsBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

// CSP spec flag bits.
const (
	CspFlagDisableAll uint32 = 1 << 0
)

// CspEntry is one decoded CSP spec: the raw directive text (empty directive
// plus CspFlagDisableAll means "disable all CSP injections").
type CspEntry struct {
	DirectiveOffset uint32
	Flags           uint32
}

const cspEntrySize = 8

type CspSpecs struct{ data []byte }

func ParseCspSpecs(data []byte) CspSpecs { return CspSpecs{data: data} }

func (c CspSpecs) Get(id uint32) (CspEntry, bool) {
	base := int(id) * cspEntrySize
	if base+cspEntrySize > len(c.data) {
		return CspEntry{}, false
	}
	e := c.data[base : base+cspEntrySize]
	return CspEntry{
		DirectiveOffset: binary.LittleEndian.Uint32(e[0:4]),
		Flags:           binary.LittleEndian.Uint32(e[4:8]),
	}, true
}

type CspSpecsBuilder struct{ buf []byte }

func (b *CspSpecsBuilder) Add(e CspEntry) uint32 {
	id := uint32(len(b.buf) / cspEntrySize)
	var buf [cspEntrySize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.DirectiveOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.Flags)
	b.buf = append(b.buf, buf[:]...)
	return id
}

func (b *CspSpecsBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

// Header-match spec flag bits.
const (
	HeaderFlagNegate uint32 = 1 << 0
)

// HeaderEntry is one decoded header-match spec: header name, an optional
// value substring (NoOption if absent), and a negate flag.
type HeaderEntry struct {
	NameOffset  uint32
	ValueOffset uint32
	Flags       uint32
	reserved    uint32
}

const headerEntrySize = 16

type HeaderSpecs struct{ data []byte }

func ParseHeaderSpecs(data []byte) HeaderSpecs { return HeaderSpecs{data: data} }

func (h HeaderSpecs) Get(id uint32) (HeaderEntry, bool) {
	base := int(id) * headerEntrySize
	if base+headerEntrySize > len(h.data) {
		return HeaderEntry{}, false
	}
	e := h.data[base : base+headerEntrySize]
	return HeaderEntry{
		NameOffset:  binary.LittleEndian.Uint32(e[0:4]),
		ValueOffset: binary.LittleEndian.Uint32(e[4:8]),
		Flags:       binary.LittleEndian.Uint32(e[8:12]),
	}, true
}

type HeaderSpecsBuilder struct{ buf []byte }

func (b *HeaderSpecsBuilder) Add(e HeaderEntry) uint32 {
	id := uint32(len(b.buf) / headerEntrySize)
	var buf [headerEntrySize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.NameOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.ValueOffset)
	binary.LittleEndian.PutUint32(buf[8:12], e.Flags)
	b.buf = append(b.buf, buf[:]...)
	return id
}

func (b *HeaderSpecsBuilder) Build() []byte {
	if b.buf == nil {
		return []byte{}
	}
	return b.buf
}

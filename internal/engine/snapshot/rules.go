package snapshot

import "encoding/binary"

// Action is the compiled rule's action tag, stored as a single byte in the
// rules table.
type Action uint8

const (
	ActionAllow Action = iota
	ActionBlock
	ActionRedirectDirective
	ActionRemoveparam
	ActionCspInject
	ActionHeaderMatchBlock
	ActionHeaderMatchAllow
	ActionResponseCancel
)

// Rule flag bits.
const (
	FlagImportant             uint16 = 1 << 0
	FlagMatchCase             uint16 = 1 << 1
	FlagFromRedirectEq        uint16 = 1 << 2
	FlagRedirectRuleException uint16 = 1 << 3
	FlagCspException          uint16 = 1 << 4
	FlagElemhide              uint16 = 1 << 5
	FlagGenerichide           uint16 = 1 << 6
)

// Request-type mask bits (16 types).
const (
	TypeDocument uint32 = 1 << iota
	TypeSubdocument
	TypeScript
	TypeImage
	TypeStylesheet
	TypeObject
	TypeXHR
	TypeWebsocket
	TypeFont
	TypeMedia
	TypePing
	TypeOther
	TypePopup
	TypeGenericblock
	TypeElemhide
	TypeGenerichide
)

// Party mask bits.
const (
	PartyFirst uint8 = 1 << iota
	PartyThird
)

// Scheme mask bits.
const (
	SchemeHTTP uint8 = 1 << iota
	SchemeHTTPS
	SchemeWS
	SchemeWSS
	SchemeData
	SchemeFTP
)

// RuleRow is the fixed set of per-rule scalar fields, used by both the
// builder (to accumulate rows before column encoding) and callers reading
// back through RulesView.
type RuleRow struct {
	Action           Action
	Flags            uint16
	TypeMask         uint32
	PartyMask        uint8
	SchemeMask       uint8
	PatternID        uint32
	ConstraintOffset uint32
	OptionID         uint32
	Priority         int16
	ListID           uint16
}

// column byte widths, in the fixed order the section lays them out.
var ruleColumnWidths = [...]int{1, 2, 4, 1, 1, 4, 4, 4, 2, 2}

// columnOffsets returns the byte offset of each column's array start for n
// rules, padding every column boundary up to 4-byte alignment as the format
// requires.
func columnOffsets(n uint32) (offsets [10]int, total int) {
	pos := 0
	for i, width := range ruleColumnWidths {
		offsets[i] = pos
		pos += width * int(n)
		if pos%4 != 0 {
			pos += 4 - pos%4
		}
	}
	return offsets, pos
}

// RulesView is the zero-copy accessor over the Rules section: a
// structure-of-arrays table indexed by dense rule index in [0, N).
type RulesView struct {
	data    []byte
	count   uint32
	offsets [10]int
}

// ParseRulesView decodes the section header (rule count) and precomputes
// column offsets.
func ParseRulesView(data []byte) (RulesView, bool) {
	if len(data) < 4 {
		return RulesView{}, false
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	offsets, total := columnOffsets(count)
	if len(data) < 4+total {
		return RulesView{}, false
	}
	return RulesView{data: data[4:], count: count, offsets: offsets}, true
}

// Count returns the number of rules.
func (r RulesView) Count() uint32 { return r.count }

func (r RulesView) inBounds(idx uint32) bool { return idx < r.count }

func (r RulesView) Action(idx uint32) (Action, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	return Action(r.data[r.offsets[0]+int(idx)]), true
}

func (r RulesView) Flags(idx uint32) (uint16, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[1] + int(idx)*2
	return binary.LittleEndian.Uint16(r.data[base : base+2]), true
}

func (r RulesView) TypeMask(idx uint32) (uint32, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[2] + int(idx)*4
	return binary.LittleEndian.Uint32(r.data[base : base+4]), true
}

func (r RulesView) PartyMask(idx uint32) (uint8, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	return r.data[r.offsets[3]+int(idx)], true
}

func (r RulesView) SchemeMask(idx uint32) (uint8, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	return r.data[r.offsets[4]+int(idx)], true
}

func (r RulesView) PatternID(idx uint32) (uint32, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[5] + int(idx)*4
	return binary.LittleEndian.Uint32(r.data[base : base+4]), true
}

func (r RulesView) ConstraintOffset(idx uint32) (uint32, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[6] + int(idx)*4
	return binary.LittleEndian.Uint32(r.data[base : base+4]), true
}

func (r RulesView) OptionID(idx uint32) (uint32, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[7] + int(idx)*4
	return binary.LittleEndian.Uint32(r.data[base : base+4]), true
}

func (r RulesView) Priority(idx uint32) (int16, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[8] + int(idx)*2
	return int16(binary.LittleEndian.Uint16(r.data[base : base+2])), true
}

func (r RulesView) ListID(idx uint32) (uint16, bool) {
	if !r.inBounds(idx) {
		return 0, false
	}
	base := r.offsets[9] + int(idx)*2
	return binary.LittleEndian.Uint16(r.data[base : base+2]), true
}

// RulesBuilder accumulates rows for column encoding.
type RulesBuilder struct {
	rows []RuleRow
}

// Add appends one compiled rule's scalar fields and returns its dense rule
// index.
func (b *RulesBuilder) Add(row RuleRow) uint32 {
	idx := uint32(len(b.rows))
	b.rows = append(b.rows, row)
	return idx
}

// Len returns the number of rows accumulated so far.
func (b *RulesBuilder) Len() int { return len(b.rows) }

// Build encodes the accumulated rows into the Rules section's
// structure-of-arrays byte layout.
func (b *RulesBuilder) Build() []byte {
	n := uint32(len(b.rows))
	offsets, total := columnOffsets(n)
	out := make([]byte, 4+total)
	binary.LittleEndian.PutUint32(out[0:4], n)
	body := out[4:]

	for i, row := range b.rows {
		body[offsets[0]+i] = byte(row.Action)
		binary.LittleEndian.PutUint16(body[offsets[1]+i*2:], row.Flags)
		binary.LittleEndian.PutUint32(body[offsets[2]+i*4:], row.TypeMask)
		body[offsets[3]+i] = row.PartyMask
		body[offsets[4]+i] = row.SchemeMask
		binary.LittleEndian.PutUint32(body[offsets[5]+i*4:], row.PatternID)
		binary.LittleEndian.PutUint32(body[offsets[6]+i*4:], row.ConstraintOffset)
		binary.LittleEndian.PutUint32(body[offsets[7]+i*4:], row.OptionID)
		binary.LittleEndian.PutUint16(body[offsets[8]+i*2:], uint16(row.Priority))
		binary.LittleEndian.PutUint16(body[offsets[9]+i*2:], row.ListID)
	}
	return out
}

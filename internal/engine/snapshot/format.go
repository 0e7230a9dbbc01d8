// Package snapshot implements the UBX1 binary snapshot format: the
// bit-exact read-only layout produced by the filter-list compiler and
// consumed by the matcher through zero-copy section views.
package snapshot

// Magic is the four-byte snapshot magic, "UBX1".
var Magic = [4]byte{'U', 'B', 'X', '1'}

// Version is the only snapshot format version this package emits and
// accepts.
const Version uint16 = 1

// HeaderSize is the fixed size in bytes of the snapshot header.
const HeaderSize = 64

// SectionEntrySize is the fixed size in bytes of one section directory
// entry.
const SectionEntrySize = 24

// Header flag bits.
const (
	FlagHasCRC32 uint16 = 1 << 0
)

// Section directory entry flag bits. SEC_FLAG_SNAPPY/SEC_FLAG_LZ4 mark a
// section's on-disk bytes as compressed; Length then describes the
// compressed byte count and UncompressedLength the decompressed count.
const (
	SecFlagSnappy uint16 = 1 << 0
	SecFlagLZ4    uint16 = 1 << 1
)

// SectionID identifies one of the snapshot's fixed set of sections.
type SectionID uint16

const (
	SectionStrPool              SectionID = 0x0001
	SectionPslSets              SectionID = 0x0002
	SectionDomainSets           SectionID = 0x0003
	SectionTokenDict            SectionID = 0x0004
	SectionTokenPostings        SectionID = 0x0005
	SectionPatternPool          SectionID = 0x0006
	SectionRules                SectionID = 0x0007
	SectionDomainConstraintPool SectionID = 0x0008
	SectionRedirectResources    SectionID = 0x0009
	SectionRemoveparamSpecs     SectionID = 0x000A
	SectionCspSpecs             SectionID = 0x000B
	SectionHeaderSpecs          SectionID = 0x000C
	SectionResponseHeaderRules  SectionID = 0x000D
	SectionCosmeticRules        SectionID = 0x000E
	SectionProceduralRules      SectionID = 0x000F
	SectionScriptletRules       SectionID = 0x0010
)

// Sentinel values used throughout the rule table and option pools.
const (
	NoPattern    uint32 = 0xFFFFFFFF
	NoConstraint uint32 = 0xFFFFFFFF
	NoOption     uint32 = 0xFFFFFFFF
)

// Pattern bytecode opcodes.
const (
	OpFindLit       byte = 0x01
	OpAssertStart   byte = 0x02
	OpAssertEnd     byte = 0x03
	OpAssertBoundary byte = 0x04
	OpSkipAny       byte = 0x05
	OpHostAnchor    byte = 0x06
	OpDone          byte = 0x07
)

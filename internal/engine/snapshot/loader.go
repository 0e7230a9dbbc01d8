package snapshot

import (
	"sync"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
)

// Snapshot is a validated, loaded UBX1 snapshot. It never copies section
// bytes on load; sections flagged as compressed are decompressed lazily into
// an owned buffer on first access and cached for the snapshot's lifetime, so
// repeat accesses stay O(1) (see §4.3 of the specification this format
// follows).
type Snapshot struct {
	data    []byte
	header  Header
	entries map[SectionID]SectionEntry

	mu       sync.Mutex
	inflated map[SectionID][]byte
}

// Load validates data as a UBX1 snapshot and returns a Snapshot exposing
// zero-copy section views. It rejects InvalidMagic, UnsupportedVersion,
// Crc32Mismatch (when HAS_CRC32 is set), DataTooShort, and InvalidSection.
// There are no partial loads: any validation failure returns a nil snapshot.
func Load(data []byte) (*Snapshot, error) {
	header, err := decodeHeader(data)
	if err != nil {
		return nil, newLoadError(err)
	}

	dirEnd := int(header.SectionDirOffset) + int(header.SectionDirBytes)
	if dirEnd > len(data) || int(header.SectionDirOffset) < HeaderSize {
		return nil, newLoadError(ErrDataTooShort)
	}
	expectedDirBytes := int(header.SectionCount) * SectionEntrySize
	if int(header.SectionDirBytes) < expectedDirBytes {
		return nil, newLoadError(ErrInvalidSection)
	}

	if header.HasCRC32() {
		if !verifyCRC32(data, header) {
			return nil, newLoadError(ErrCrc32Mismatch)
		}
	}

	entries := make(map[SectionID]SectionEntry, header.SectionCount)
	pos := int(header.SectionDirOffset)
	for i := uint32(0); i < header.SectionCount; i++ {
		if pos+SectionEntrySize > len(data) {
			return nil, newLoadError(ErrDataTooShort)
		}
		entry := decodeSectionEntry(data[pos : pos+SectionEntrySize])
		end := int(entry.Offset) + int(entry.Length)
		if end > len(data) || end < int(entry.Offset) {
			return nil, newSectionLoadError(ErrInvalidSection, entry.ID)
		}
		entries[entry.ID] = entry
	}

	return &Snapshot{
		data:     data,
		header:   header,
		entries:  entries,
		inflated: make(map[SectionID][]byte),
	}, nil
}

// verifyCRC32 checks the header's snapshot_crc32 field against a CRC32 over
// the whole buffer with the crc32 field itself zeroed out, matching the
// "covers everything except the CRC field" contract.
func verifyCRC32(data []byte, header Header) bool {
	scratch := make([]byte, len(data))
	copy(scratch, data)
	for i := 28; i < 32; i++ {
		scratch[i] = 0
	}
	return hashutil.CRC32(scratch) == header.SnapshotCRC32
}

// BuildID returns the header's build identifier.
func (s *Snapshot) BuildID() uint32 {
	return s.header.BuildID
}

// HasSection reports whether id is present in the section directory.
func (s *Snapshot) HasSection(id SectionID) bool {
	_, ok := s.entries[id]
	return ok
}

// GetSectionInfo returns the decoded directory entry for id.
func (s *Snapshot) GetSectionInfo(id SectionID) (SectionEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// GetSection returns the (possibly lazily-decompressed) bytes of section id.
// Returns nil, false if the section is absent; this is a normal condition
// (e.g. a list compiled with no redirect resources omits that section) and
// callers must treat it as "empty", not as a load failure.
func (s *Snapshot) GetSection(id SectionID) ([]byte, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	raw := s.data[entry.Offset : entry.Offset+entry.Length]
	if entry.Flags&(SecFlagSnappy|SecFlagLZ4) == 0 {
		return raw, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.inflated[id]; ok {
		return cached, true
	}
	decoded, err := decompressSection(raw, entry.Flags, entry.UncompressedLength)
	if err != nil {
		return nil, false
	}
	s.inflated[id] = decoded
	return decoded, true
}

// GetString reads the length-prefixed string record at the given byte
// offset into the string pool. Returns "" if the offset or its declared
// length falls outside the pool, matching the matcher's clamp-and-Allow
// failure contract rather than panicking on a corrupt snapshot.
func (s *Snapshot) GetString(offset uint32) string {
	raw, ok := s.GetSection(SectionStrPool)
	if !ok {
		return ""
	}
	str, ok := ParseStrPool(raw).Get(offset)
	if !ok {
		return ""
	}
	return str
}

package snapshot

import "encoding/binary"

// Header is the decoded form of the snapshot's fixed 64-byte header.
type Header struct {
	Version          uint16
	Flags            uint16
	HeaderBytes      uint32
	SectionCount     uint32
	SectionDirOffset uint32
	SectionDirBytes  uint32
	BuildID          uint32
	SnapshotCRC32    uint32
}

// HasCRC32 reports whether the header's HAS_CRC32 flag is set.
func (h Header) HasCRC32() bool {
	return h.Flags&FlagHasCRC32 != 0
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrDataTooShort
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:          binary.LittleEndian.Uint16(data[4:6]),
		Flags:            binary.LittleEndian.Uint16(data[6:8]),
		HeaderBytes:      binary.LittleEndian.Uint32(data[8:12]),
		SectionCount:     binary.LittleEndian.Uint32(data[12:16]),
		SectionDirOffset: binary.LittleEndian.Uint32(data[16:20]),
		SectionDirBytes:  binary.LittleEndian.Uint32(data[20:24]),
		BuildID:          binary.LittleEndian.Uint32(data[24:28]),
		SnapshotCRC32:    binary.LittleEndian.Uint32(data[28:32]),
	}
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	return h, nil
}

func encodeHeader(dst []byte, h Header) {
	copy(dst[0:4], Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Version)
	binary.LittleEndian.PutUint16(dst[6:8], h.Flags)
	binary.LittleEndian.PutUint32(dst[8:12], h.HeaderBytes)
	binary.LittleEndian.PutUint32(dst[12:16], h.SectionCount)
	binary.LittleEndian.PutUint32(dst[16:20], h.SectionDirOffset)
	binary.LittleEndian.PutUint32(dst[20:24], h.SectionDirBytes)
	binary.LittleEndian.PutUint32(dst[24:28], h.BuildID)
	binary.LittleEndian.PutUint32(dst[28:32], h.SnapshotCRC32)
	// bytes 32:64 are reserved padding, left zero.
}

// SectionEntry is one decoded section directory entry.
type SectionEntry struct {
	ID                 SectionID
	Flags              uint16
	Offset             uint32
	Length             uint32
	UncompressedLength uint32
	CRC32              uint32
}

func decodeSectionEntry(data []byte) SectionEntry {
	return SectionEntry{
		ID:                 SectionID(binary.LittleEndian.Uint16(data[0:2])),
		Flags:              binary.LittleEndian.Uint16(data[2:4]),
		Offset:             binary.LittleEndian.Uint32(data[4:8]),
		Length:             binary.LittleEndian.Uint32(data[8:12]),
		UncompressedLength: binary.LittleEndian.Uint32(data[12:16]),
		CRC32:              binary.LittleEndian.Uint32(data[16:20]),
	}
}

func encodeSectionEntry(dst []byte, e SectionEntry) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(e.ID))
	binary.LittleEndian.PutUint16(dst[2:4], e.Flags)
	binary.LittleEndian.PutUint32(dst[4:8], e.Offset)
	binary.LittleEndian.PutUint32(dst[8:12], e.Length)
	binary.LittleEndian.PutUint32(dst[12:16], e.UncompressedLength)
	binary.LittleEndian.PutUint32(dst[16:20], e.CRC32)
	// bytes 20:24 are reserved padding, left zero.
}

package hashutil

import "hash/crc32"

// CRC32 computes the IEEE 802.3 CRC32 (polynomial 0xedb88320, reflected) used
// to validate whole-snapshot integrity when the HAS_CRC32 header flag is set.
// This is exactly Go's standard IEEE table; there is no ecosystem package in
// this lineage's dependency set that implements CRC32 (it is a solved,
// single-function problem the standard library already covers byte-for-byte
// per the polynomial named in the format), so reimplementing the table by
// hand would only reinvent hash/crc32.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

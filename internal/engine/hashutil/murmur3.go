// Package hashutil implements the murmur3-based hash primitives used to key
// the snapshot's domain maps, token dictionary, and open-addressed hash
// tables, plus the CRC32 routine used for snapshot integrity checks.
package hashutil

import "encoding/binary"

// Hash64 is a 64-bit hash split into two 32-bit halves, each produced by an
// independent Murmur3-32 pass. Used to key domain hash tables with an
// effectively nonexistent collision probability at filter-list scale.
type Hash64 struct {
	Lo uint32
	Hi uint32
}

// IsEmpty reports whether h is the empty-slot sentinel (0, 0). Hash
// production (Hash64Bytes, HashDomain) guarantees this never occurs for a
// real key, so (0, 0) is safe to use as the empty marker in open-addressed
// tables.
func (h Hash64) IsEmpty() bool {
	return h.Lo == 0 && h.Hi == 0
}

// ToU64 packs h into a single uint64, hi in the upper 32 bits.
func (h Hash64) ToU64() uint64 {
	return uint64(h.Hi)<<32 | uint64(h.Lo)
}

// Hash64FromU64 unpacks a uint64 produced by ToU64.
func Hash64FromU64(v uint64) Hash64 {
	return Hash64{Lo: uint32(v), Hi: uint32(v >> 32)}
}

const (
	seedLo = 0x9e3779b9 // golden ratio
	seedHi = 0x85ebca6b // murmur3 finalization constant, reused as a seed
	seedTok = 0x811c9dc5
)

const (
	c1 = 0xcc9e2d51
	c2 = 0x1b873593
)

// Murmur3_32 is the standard 32-bit Murmur3 hash (x86 variant) over data
// with the given seed.
func Murmur3_32(data []byte, seed uint32) uint32 {
	h := seed
	length := len(data)
	chunks := length &^ 3 // round down to a multiple of 4

	for i := 0; i < chunks; i += 4 {
		k := binary.LittleEndian.Uint32(data[i : i+4])
		k *= c1
		k = rotl32(k, 15)
		k *= c2

		h ^= k
		h = rotl32(h, 13)
		h = h*5 + 0xe6546b64
	}

	var k uint32
	remainder := length & 3
	tail := data[chunks:]
	if remainder >= 3 {
		k ^= uint32(tail[2]) << 16
	}
	if remainder >= 2 {
		k ^= uint32(tail[1]) << 8
	}
	if remainder >= 1 {
		k ^= uint32(tail[0])
		k *= c1
		k = rotl32(k, 15)
		k *= c2
		h ^= k
	}

	h ^= uint32(length)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

// Hash64Bytes computes the composite 64-bit hash over raw bytes, forcing the
// (0,0) sentinel to (1, hi) if it ever occurs.
func Hash64Bytes(data []byte) Hash64 {
	lo := Murmur3_32(data, seedLo)
	hi := Murmur3_32(data, seedHi)
	if lo == 0 && hi == 0 {
		lo = 1
	}
	return Hash64{Lo: lo, Hi: hi}
}

// HashDomain hashes a domain/host string case-insensitively: the input is
// lowercased into a fixed 256-byte stack buffer (truncated beyond that, which
// is far longer than any valid DNS label sequence) before hashing, so the
// call never allocates.
func HashDomain(domain string) Hash64 {
	var buf [256]byte
	n := len(domain)
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		b := domain[i]
		if b >= 'A' && b <= 'Z' {
			b += 32
		}
		buf[i] = b
	}
	return Hash64Bytes(buf[:n])
}

// HashToken hashes a URL token (a >=3-char ASCII-alphanumeric run) with a
// distinct seed from the domain hash, forcing a nonzero result.
func HashToken(token []byte) uint32 {
	h := Murmur3_32(token, seedTok)
	if h == 0 {
		h = 1
	}
	return h
}

// HashTokenString is HashToken for a string argument, used by the compiler
// where tokens are already materialized as strings.
func HashTokenString(token string) uint32 {
	return HashToken([]byte(token))
}

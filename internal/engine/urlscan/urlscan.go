// Package urlscan implements allocation-free URL scanning primitives used by
// the matcher's hot path and the compiler's pattern builder: scheme
// extraction, host-span location, tokenization, and the ABP boundary
// predicate. Every function here returns byte offsets into the caller's
// slice rather than copying.
package urlscan

import "github.com/edgecomet/blockengine/internal/engine/hashutil"

// Scheme enumerates the request schemes the engine understands. The values
// are a plain enumeration, not the rule table's scheme_mask bits; the
// matcher translates a Scheme to its snapshot.Scheme* mask bit.
type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeHTTP
	SchemeHTTPS
	SchemeWS
	SchemeWSS
	SchemeData
	SchemeFTP
)

// ExtractScheme recognizes the scheme prefix of url (case-sensitive, as
// filter lists and real traffic both normalize to lowercase schemes) and
// returns the scheme plus the byte offset immediately after "://" (or
// after ":" for data:). Returns (SchemeUnknown, 0) if no recognized scheme
// prefix is present.
func ExtractScheme(url string) (Scheme, int) {
	for _, c := range []struct {
		prefix string
		scheme Scheme
	}{
		{"https://", SchemeHTTPS},
		{"http://", SchemeHTTP},
		{"wss://", SchemeWSS},
		{"ws://", SchemeWS},
		{"ftp://", SchemeFTP},
		{"data:", SchemeData},
	} {
		if len(url) >= len(c.prefix) && url[:len(c.prefix)] == c.prefix {
			return c.scheme, len(c.prefix)
		}
	}
	return SchemeUnknown, 0
}

// GetHostPosition returns the [start, end) byte span of the host within url,
// given the offset immediately following the scheme (as returned by
// ExtractScheme). Userinfo ("user:pass@") is skipped. The span stops at the
// first '/', '?', '#', or ':' (port separator).
func GetHostPosition(url string, afterScheme int) (start, end int) {
	start = afterScheme
	slashLimit := len(url)
	for i := afterScheme; i < len(url); i++ {
		if c := url[i]; c == '/' || c == '?' || c == '#' {
			slashLimit = i
			break
		}
	}
	for i := afterScheme; i < slashLimit; i++ {
		if url[i] == '@' {
			start = i + 1
		}
	}
	end = len(url)
	for i := start; i < len(url); i++ {
		switch url[i] {
		case '/', '?', '#', ':':
			return start, i
		}
	}
	return start, end
}

// IsBoundaryChar implements the ABP '^' separator-placeholder contract: true
// at end-of-string and for any byte that is not ASCII-alphanumeric and not
// '%'.
func IsBoundaryChar(b byte, atEnd bool) bool {
	if atEnd {
		return true
	}
	if b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '%' {
		return false
	}
	return true
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// MaxTokens bounds the number of token hashes TokenizeURL emits, keeping
// per-request tokenization O(1) regardless of URL length.
const MaxTokens = 32

// MinTokenLen is the shortest run considered a token.
const MinTokenLen = 3

// TokenizeURL yields up to MaxTokens hashes of >=3-char ASCII-alphanumeric
// runs in url, starting at fromOffset (callers pass the offset past the
// scheme so the scheme itself never contributes a token). Appends into dst
// and returns the extended slice, so a caller can reuse a stack-allocated
// backing array across calls.
func TokenizeURL(url string, fromOffset int, dst []uint32) []uint32 {
	runStart := -1
	for i := fromOffset; i <= len(url) && len(dst) < MaxTokens; i++ {
		var c byte
		alnum := false
		if i < len(url) {
			c = url[i]
			alnum = isAlnum(c)
		}
		if alnum {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			if i-runStart >= MinTokenLen {
				dst = append(dst, hashutil.HashToken([]byte(url[runStart:i])))
			}
			runStart = -1
		}
	}
	return dst
}

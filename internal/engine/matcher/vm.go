package matcher

import (
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/edgecomet/blockengine/internal/engine/urlscan"
)

// hashPair is a 64-bit domain hash split into its two 32-bit halves, matching
// snapshot.PatternEntry's HostHashLo/HostHashHi fields.
type hashPair struct {
	Lo uint32
	Hi uint32
}

// resolveLit looks up a FindLit operand's literal text from the string
// pool; normally snap.GetString, injected so tests can stub it.
type resolveLit func(offset uint32, length int) (string, bool)

// runPattern executes entry's bytecode program against url starting at
// position 0, returning true iff the program reaches Done. hostEnd is the
// byte offset immediately past the request host, used by HostAnchor to
// reject a match that only occurs past the host. reqHostHashes carries the
// domain hash of every suffix of the request host (most specific first),
// since a host-anchored pattern's recorded hash may match any ancestor
// domain, not just the full host.
func runPattern(entry snapshot.PatternEntry, program []byte, url string, hostEnd int, reqHostHashes []hashPair, lit resolveLit) bool {
	pos := 0
	lowerURL := strings.ToLower(url)

	for i := 0; i < len(program); {
		op := program[i]
		i++
		switch op {
		case snapshot.OpFindLit:
			if i+6 > len(program) {
				return false
			}
			off := leU32(program[i : i+4])
			length := int(leU16(program[i+4 : i+6]))
			i += 6
			text, ok := lit(off, length)
			if !ok {
				return false
			}
			needle := strings.ToLower(text)
			if pos > len(lowerURL) {
				return false
			}
			idx := strings.Index(lowerURL[pos:], needle)
			if idx < 0 {
				return false
			}
			pos += idx + len(needle)

		case snapshot.OpAssertStart:
			if pos != 0 {
				return false
			}

		case snapshot.OpAssertEnd:
			if pos != len(url) {
				return false
			}

		case snapshot.OpAssertBoundary:
			atEnd := pos >= len(url)
			var b byte
			if !atEnd {
				b = url[pos]
			}
			if !urlscan.IsBoundaryChar(b, atEnd) {
				return false
			}

		case snapshot.OpSkipAny:
			// no-op: the following FindLit performs the skip via strings.Index.

		case snapshot.OpHostAnchor:
			if entry.HasHostHash() {
				matched := false
				for _, h := range reqHostHashes {
					if h.Lo == entry.HostHashLo && h.Hi == entry.HostHashHi {
						matched = true
						break
					}
				}
				if !matched {
					return false
				}
			}
			if pos > hostEnd {
				return false
			}

		case snapshot.OpDone:
			return true

		default:
			return false
		}
	}
	return false
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

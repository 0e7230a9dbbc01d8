package matcher

import (
	"testing"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/stretchr/testify/assert"
)

// litTable resolves offsets to literal strings for tests: offset is simply
// the table index, keeping program construction readable.
func litTable(strs ...string) resolveLit {
	return func(offset uint32, length int) (string, bool) {
		if int(offset) >= len(strs) {
			return "", false
		}
		s := strs[offset]
		if len(s) != length {
			return "", false
		}
		return s, true
	}
}

func appendFindLit(program []byte, offset uint32, length uint16) []byte {
	program = append(program, snapshot.OpFindLit)
	program = appendU32(program, offset)
	program = appendU16(program, length)
	return program
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendU16(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}

func TestRunPatternFindLitSequentialAdvance(t *testing.T) {
	// "||ads.example.com/track" as two literals in match order.
	lit := litTable("ads.example.com", "/track")
	program := appendFindLit(nil, 0, uint16(len("ads.example.com")))
	program = appendFindLit(program, 1, uint16(len("/track")))
	program = append(program, snapshot.OpDone)

	ok := runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/track/pixel.gif", 24, nil, lit)
	assert.True(t, ok)
}

func TestRunPatternFindLitRequiresOrder(t *testing.T) {
	lit := litTable("/track", "ads.example.com")
	// literal order in the program ("/track" before the host) can never
	// match since "/track" only appears after the host in the URL.
	program := appendFindLit(nil, 0, uint16(len("/track")))
	program = appendFindLit(program, 1, uint16(len("ads.example.com")))
	program = append(program, snapshot.OpDone)

	ok := runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/track/pixel.gif", 24, nil, lit)
	assert.False(t, ok)
}

func TestRunPatternFindLitCaseInsensitive(t *testing.T) {
	lit := litTable("ADS.EXAMPLE.COM")
	program := appendFindLit(nil, 0, uint16(len("ADS.EXAMPLE.COM")))
	program = append(program, snapshot.OpDone)

	ok := runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/x", 24, nil, lit)
	assert.True(t, ok)
}

func TestRunPatternAssertStart(t *testing.T) {
	program := []byte{snapshot.OpAssertStart, snapshot.OpDone}
	assert.True(t, runPattern(snapshot.PatternEntry{}, program, "https://x/", 0, nil, nil))

	lit := litTable("x")
	p2 := appendFindLit(nil, 0, 1)
	p2 = append(p2, snapshot.OpAssertStart, snapshot.OpDone)
	assert.False(t, runPattern(snapshot.PatternEntry{}, p2, "xx", 0, nil, lit))
}

func TestRunPatternAssertEnd(t *testing.T) {
	lit := litTable("gif")
	program := appendFindLit(nil, 0, 3)
	program = append(program, snapshot.OpAssertEnd, snapshot.OpDone)

	assert.True(t, runPattern(snapshot.PatternEntry{}, program, "https://x/a.gif", 0, nil, lit))
	assert.False(t, runPattern(snapshot.PatternEntry{}, program, "https://x/a.gif?x=1", 0, nil, lit))
}

func TestRunPatternAssertBoundary(t *testing.T) {
	lit := litTable("ads")
	program := appendFindLit(nil, 0, 3)
	program = append(program, snapshot.OpAssertBoundary, snapshot.OpDone)

	// "ads" followed by '.' is a boundary char.
	assert.True(t, runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/", 0, nil, lit))

	lit2 := litTable("adsx")
	p2 := appendFindLit(nil, 0, 4)
	p2 = append(p2, snapshot.OpAssertBoundary, snapshot.OpDone)
	// "adsx" followed by "tra" ('t' is alphanumeric): not a boundary.
	assert.False(t, runPattern(snapshot.PatternEntry{}, p2, "https://adsxtra.com/", 0, nil, lit2))
}

func TestRunPatternHostAnchorRequiresMatchingSuffixHash(t *testing.T) {
	entry := snapshot.PatternEntry{HostHashLo: 7, HostHashHi: 9}
	program := []byte{snapshot.OpHostAnchor, snapshot.OpDone}

	ok := runPattern(entry, program, "https://ads.example.com/x", 24, []hashPair{{Lo: 1, Hi: 2}, {Lo: 7, Hi: 9}}, nil)
	assert.True(t, ok)

	ok = runPattern(entry, program, "https://ads.example.com/x", 24, []hashPair{{Lo: 1, Hi: 2}}, nil)
	assert.False(t, ok)
}

func TestRunPatternHostAnchorWithoutRecordedHashAlwaysPassesPositionCheck(t *testing.T) {
	program := []byte{snapshot.OpHostAnchor, snapshot.OpDone}
	ok := runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/x", 24, nil, nil)
	assert.True(t, ok)
}

func TestRunPatternHostAnchorRejectsPastHostEnd(t *testing.T) {
	lit := litTable("/x")
	entry := snapshot.PatternEntry{}
	program := appendFindLit(nil, 0, 2)
	program = append(program, snapshot.OpHostAnchor, snapshot.OpDone)

	// after matching "/x" the cursor is past hostEnd (10), so the anchor
	// check (pos > hostEnd) rejects.
	ok := runPattern(entry, program, "https://ads.example.com/x", 10, nil, lit)
	assert.False(t, ok)
}

func TestRunPatternSkipAnyIsNoop(t *testing.T) {
	lit := litTable("ads", "com")
	program := appendFindLit(nil, 0, 3)
	program = append(program, snapshot.OpSkipAny)
	program = appendFindLit(program, 1, 3)
	program = append(program, snapshot.OpDone)

	assert.True(t, runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/", 0, nil, lit))
}

func TestRunPatternUnresolvedLiteralFails(t *testing.T) {
	lit := func(uint32, int) (string, bool) { return "", false }
	program := appendFindLit(nil, 0, 3)
	program = append(program, snapshot.OpDone)

	assert.False(t, runPattern(snapshot.PatternEntry{}, program, "https://ads.example.com/", 0, nil, lit))
}

package filterlist

import (
	"strings"

	"github.com/edgecomet/blockengine/internal/engine/hashutil"
	"github.com/edgecomet/blockengine/internal/engine/snapshot"
)

// recognizePattern classifies a network rule's pattern text (the part
// before any '$'). A bare "||host^" or "||host|" with no further URL
// structure is a host-anchor rule: it returns (host, nil, true). Anything
// else returns (_, spec, true) for the general pattern path, with spec.Raw
// already stripped of the anchor markers the bytecode compiler re-derives
// from spec.Anchor, or (_, _, false) for an unsupported (regex) pattern.
func recognizePattern(raw string) (hostLiteral string, spec *patternSpec, ok bool) {
	if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) > 1 {
		return "", nil, false // regex patterns are not compiled
	}

	if host, isHost := hostAnchorHost(raw); isHost {
		return strings.ToLower(host), nil, true
	}

	anchor := snapshot.AnchorNone
	body := raw
	switch {
	case strings.HasPrefix(body, "||"):
		anchor = snapshot.AnchorHostname
		body = body[2:]
	case strings.HasPrefix(body, "|"):
		anchor = snapshot.AnchorLeft
		body = body[1:]
	}
	if strings.HasSuffix(body, "|") {
		body = body[:len(body)-1]
	}
	return "", &patternSpec{Raw: body, Anchor: anchor}, true
}

// hostAnchorHost reports whether raw is exactly "||host^" or "||host|" with
// no additional URL structure (no '/', '?', '#', ':', or '*' in host),
// returning the bare host if so.
func hostAnchorHost(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "||") {
		return "", false
	}
	body := raw[2:]
	if len(body) == 0 {
		return "", false
	}
	last := body[len(body)-1]
	if last != '^' && last != '|' {
		return "", false
	}
	host := body[:len(body)-1]
	if host == "" {
		return "", false
	}
	if strings.ContainsAny(host, "/?#:*") {
		return "", false
	}
	return host, true
}

// hostsFileHost recognizes "0.0.0.0 host" / "127.0.0.1 host" hosts-file
// lines, returning the blocked host.
func hostsFileHost(line string) (string, bool) {
	for _, prefix := range []string{"0.0.0.0 ", "127.0.0.1 "} {
		if strings.HasPrefix(line, prefix) {
			host := strings.TrimSpace(line[len(prefix):])
			if host == "" || host == "localhost" {
				return "", false
			}
			return strings.ToLower(host), true
		}
	}
	return "", false
}

// hostnameDomainFromPattern extracts the leading host substring of a
// Hostname-anchored pattern body, up to the first '/ ^ * ? #', for use as
// the rule's domain literal.
func hostnameDomainFromPattern(body string) string {
	end := len(body)
	for i, c := range body {
		if c == '/' || c == '^' || c == '*' || c == '?' || c == '#' {
			end = i
			break
		}
	}
	return strings.ToLower(body[:end])
}

// compilePattern lowercases spec.Raw and emits the bytecode program per
// SPEC_FULL.md's pattern VM: HostAnchor for Hostname anchors (recording the
// host hash), AssertStart for Left anchors, then a walk emitting SkipAny
// for '*', AssertBoundary for '^', and literal runs flushed as FindLit
// through the string pool, terminated by Done.
func compilePattern(spec patternSpec, sb *snapshot.StrPoolBuilder) (program []byte, hostHashLo, hostHashHi uint32, flags uint8) {
	lower := strings.ToLower(spec.Raw)

	switch spec.Anchor {
	case snapshot.AnchorHostname:
		host := hostnameDomainFromPattern(lower)
		h := hashutil.HashDomain(host)
		hostHashLo, hostHashHi = h.Lo, h.Hi
		program = append(program, snapshot.OpHostAnchor)
	case snapshot.AnchorLeft:
		program = append(program, snapshot.OpAssertStart)
	}

	var literal strings.Builder
	flush := func() {
		if literal.Len() == 0 {
			return
		}
		s := literal.String()
		off := sb.Intern(s)
		program = append(program, snapshot.OpFindLit)
		program = appendU32(program, off)
		program = appendU16(program, uint16(len(s)))
		literal.Reset()
	}

	for i := 0; i < len(lower); i++ {
		c := lower[i]
		switch c {
		case '*':
			flush()
			program = append(program, snapshot.OpSkipAny)
		case '^':
			flush()
			program = append(program, snapshot.OpAssertBoundary)
		default:
			literal.WriteByte(c)
		}
	}
	flush()
	program = append(program, snapshot.OpDone)
	return program, hostHashLo, hostHashHi, flags
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

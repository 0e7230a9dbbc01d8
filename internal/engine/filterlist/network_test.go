package filterlist

import (
	"testing"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworkOptionsBasic(t *testing.T) {
	p, ok := parseNetworkOptions("script,third-party,domain=example.com|~sub.example.com")
	require.True(t, ok)
	assert.True(t, p.sawTypeToken)
	assert.Equal(t, snapshot.TypeScript, p.typeInclude)
	assert.True(t, p.sawPartyToken)
	assert.Equal(t, snapshot.PartyThird, p.partyInclude)
	assert.Equal(t, []string{"example.com"}, p.Domain.Include)
	assert.Equal(t, []string{"sub.example.com"}, p.Domain.Exclude)
}

func TestParseNetworkOptionsUnknownRejects(t *testing.T) {
	_, ok := parseNetworkOptions("not-a-real-option")
	assert.False(t, ok)
}

func TestParseNetworkOptionsImportantBadfilter(t *testing.T) {
	p, ok := parseNetworkOptions("important,badfilter")
	require.True(t, ok)
	assert.Equal(t, snapshot.FlagImportant, p.Flags)
	assert.True(t, p.IsBadfilter)
}

func TestParseNetworkOptionsRedirect(t *testing.T) {
	p, ok := parseNetworkOptions("redirect-rule=noop.js")
	require.True(t, ok)
	assert.True(t, p.HasRedirect)
	assert.True(t, p.RedirectRule)
	assert.Equal(t, "noop.js", p.RedirectName)
}

func TestParseNetworkOptionsHeader(t *testing.T) {
	p, ok := parseNetworkOptions("header=set-cookie:~session")
	require.True(t, ok)
	assert.True(t, p.HasHeader)
	assert.Equal(t, "set-cookie", p.HeaderName)
	assert.Equal(t, "session", p.HeaderValue)
	assert.True(t, p.HeaderNegate)
}

func TestFinalizeMaskAllCollapsesToZero(t *testing.T) {
	mask := finalizeMask32(0, 0, true, allTypeMask)
	assert.Equal(t, uint32(0), mask)
}

func TestFinalizeMaskExcludeOnly(t *testing.T) {
	mask := finalizeMask32(0, snapshot.TypeImage, true, allTypeMask)
	assert.Equal(t, allTypeMask&^snapshot.TypeImage, mask)
}

func TestMaskEmptyAfterFinalizeDetectsContradiction(t *testing.T) {
	empty := maskEmptyAfterFinalize(snapshot.TypeImage, snapshot.TypeImage, true, allTypeMask)
	assert.True(t, empty)
}

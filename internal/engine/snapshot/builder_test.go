package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleSnapshot(t *testing.T, withCRC bool) []byte {
	t.Helper()

	var strs StrPoolBuilder
	host := strs.Intern("example.com")
	_ = host

	var patterns PatternBuilder
	patternID := patterns.AddProgram(AnchorHostname, 0, 0, 0, []byte{OpHostAnchor, OpDone})

	var rules RulesBuilder
	rules.Add(RuleRow{
		Action:           ActionBlock,
		TypeMask:         TypeScript,
		PartyMask:        PartyThird,
		SchemeMask:       SchemeHTTPS,
		PatternID:        patternID,
		ConstraintOffset: NoConstraint,
		OptionID:         NoOption,
		ListID:           1,
	})

	b := NewBuilder(0xcafebabe, withCRC)
	b.AddSection(SectionData{ID: SectionStrPool, Body: strs.Build()})
	b.AddSection(SectionData{ID: SectionPatternPool, Body: patterns.Build()})
	b.AddSection(SectionData{ID: SectionRules, Body: rules.Build()})
	return b.Build()
}

func TestBuilderLoaderRoundTrip(t *testing.T) {
	raw := buildSampleSnapshot(t, false)

	snap, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xcafebabe), snap.BuildID())
	assert.True(t, snap.HasSection(SectionRules))
	assert.False(t, snap.HasSection(SectionDomainSets))

	rulesRaw, ok := snap.GetSection(SectionRules)
	require.True(t, ok)
	view, ok := ParseRulesView(rulesRaw)
	require.True(t, ok)
	assert.Equal(t, uint32(1), view.Count())

	action, ok := view.Action(0)
	require.True(t, ok)
	assert.Equal(t, ActionBlock, action)
}

func TestBuilderLoaderRoundTripWithCRC32(t *testing.T) {
	raw := buildSampleSnapshot(t, true)

	snap, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xcafebabe), snap.BuildID())

	corrupted := make([]byte, len(raw))
	copy(corrupted, raw)
	corrupted[HeaderSize] ^= 0xff

	_, err = Load(corrupted)
	require.Error(t, err)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, ErrCrc32Mismatch)
}

func TestLoadRejectsInvalidMagic(t *testing.T) {
	raw := buildSampleSnapshot(t, false)
	raw[0] = 'X'
	_, err := Load(raw)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	raw := buildSampleSnapshot(t, false)
	raw[4] = 0xff
	raw[5] = 0xff
	_, err := Load(raw)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoadRejectsDataTooShort(t *testing.T) {
	_, err := Load([]byte{'U', 'B', 'X', '1'})
	assert.ErrorIs(t, err, ErrDataTooShort)
}

func TestLoadRejectsOutOfRangeSection(t *testing.T) {
	raw := buildSampleSnapshot(t, false)

	dirOffset := HeaderSize
	entryOffset := dirOffset
	raw[entryOffset+8] = 0xff
	raw[entryOffset+9] = 0xff
	raw[entryOffset+10] = 0xff
	raw[entryOffset+11] = 0x7f

	snap, err := Load(raw)
	require.ErrorIs(t, err, ErrInvalidSection)
	assert.Nil(t, snap)
}

func TestGetSectionAbsentReturnsFalse(t *testing.T) {
	raw := buildSampleSnapshot(t, false)
	snap, err := Load(raw)
	require.NoError(t, err)
	_, ok := snap.GetSection(SectionCspSpecs)
	assert.False(t, ok)
}

package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesViewRoundTrip(t *testing.T) {
	var b RulesBuilder
	idx0 := b.Add(RuleRow{
		Action:           ActionBlock,
		Flags:            FlagImportant | FlagMatchCase,
		TypeMask:         TypeScript | TypeImage,
		PartyMask:        PartyThird,
		SchemeMask:       SchemeHTTPS,
		PatternID:        7,
		ConstraintOffset: NoConstraint,
		OptionID:         NoOption,
		Priority:         -5,
		ListID:           3,
	})
	idx1 := b.Add(RuleRow{
		Action:           ActionRemoveparam,
		Flags:            0,
		TypeMask:         TypeXHR,
		PartyMask:        PartyFirst,
		SchemeMask:       SchemeHTTP,
		PatternID:        NoPattern,
		ConstraintOffset: 42,
		OptionID:         9,
		Priority:         100,
		ListID:           1,
	})
	assert.Equal(t, uint32(0), idx0)
	assert.Equal(t, uint32(1), idx1)
	assert.Equal(t, 2, b.Len())

	raw := b.Build()
	view, ok := ParseRulesView(raw)
	require.True(t, ok)
	assert.Equal(t, uint32(2), view.Count())

	action, ok := view.Action(idx0)
	require.True(t, ok)
	assert.Equal(t, ActionBlock, action)

	flags, ok := view.Flags(idx0)
	require.True(t, ok)
	assert.Equal(t, FlagImportant|FlagMatchCase, flags)

	typeMask, ok := view.TypeMask(idx0)
	require.True(t, ok)
	assert.Equal(t, TypeScript|TypeImage, typeMask)

	priority, ok := view.Priority(idx0)
	require.True(t, ok)
	assert.Equal(t, int16(-5), priority)

	constraintOffset, ok := view.ConstraintOffset(idx1)
	require.True(t, ok)
	assert.Equal(t, uint32(42), constraintOffset)

	optionID, ok := view.OptionID(idx1)
	require.True(t, ok)
	assert.Equal(t, uint32(9), optionID)

	listID, ok := view.ListID(idx1)
	require.True(t, ok)
	assert.Equal(t, uint16(1), listID)

	_, ok = view.Action(99)
	assert.False(t, ok)
}

func TestColumnOffsetsAreFourByteAligned(t *testing.T) {
	offsets, total := columnOffsets(7)
	for _, off := range offsets {
		assert.Equal(t, 0, off%4, "column offset %d not 4-byte aligned", off)
	}
	assert.Equal(t, 0, total%4)
}

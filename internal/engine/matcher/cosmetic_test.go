package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSelectorsExcludesExceptionsAndDedupes(t *testing.T) {
	specific := []string{".ad", ".banner", ".ad"}
	generic := []string{".sponsored"}
	exception := []string{".banner"}

	got := mergeSelectors(specific, generic, exception, false)
	assert.Equal(t, []string{".ad", ".sponsored"}, got)
}

func TestMergeSelectorsGenerichideDisabledDropsGeneric(t *testing.T) {
	got := mergeSelectors([]string{".ad"}, []string{".sponsored"}, nil, true)
	assert.Equal(t, []string{".ad"}, got)
}

// Adding a generichide exception never adds selectors, only ever removes
// the generic ones; the specific set is unaffected either way.
func TestMergeSelectorsGenerichideIsMonotonicallyNonAdding(t *testing.T) {
	specific := []string{".ad"}
	generic := []string{".sponsored"}

	withGeneric := mergeSelectors(specific, generic, nil, false)
	withoutGeneric := mergeSelectors(specific, generic, nil, true)

	for _, s := range withoutGeneric {
		assert.Contains(t, withGeneric, s)
	}
	assert.LessOrEqual(t, len(withoutGeneric), len(withGeneric))
}

func TestSplitProceduralSelectorHasText(t *testing.T) {
	sel, op := splitProceduralSelector("div.ad:has-text(buy now)")
	assert.Equal(t, "div.ad", sel)
	assert.Equal(t, "has-text(buy now)", op)
}

func TestSplitProceduralSelectorNoPseudoReturnsWhole(t *testing.T) {
	sel, op := splitProceduralSelector("div.ad")
	assert.Equal(t, "div.ad", sel)
	assert.Equal(t, "", op)
}

package filterlist

import (
	"testing"

	"github.com/edgecomet/blockengine/internal/engine/snapshot"
	"github.com/stretchr/testify/assert"
)

func TestOptimizeDedupesIdenticalRules(t *testing.T) {
	rules := []networkRule{
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 1},
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 1},
	}
	var stats Stats
	out := optimizeNetworkRules(rules, &stats)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, stats.Deduped)
	assert.Equal(t, 2, stats.RulesBeforeDedup)
	assert.Equal(t, 1, stats.RulesAfterDedup)
}

func TestOptimizeKeepsDistinctListIDs(t *testing.T) {
	rules := []networkRule{
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 1},
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 2},
	}
	var stats Stats
	out := optimizeNetworkRules(rules, &stats)
	assert.Len(t, out, 2)
	assert.Equal(t, 0, stats.Deduped)
}

func TestOptimizeBadfilterCancelsMatchingRule(t *testing.T) {
	rules := []networkRule{
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 1},
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 2, IsBadfilter: true},
	}
	var stats Stats
	out := optimizeNetworkRules(rules, &stats)
	assert.Len(t, out, 0)
	assert.Equal(t, 1, stats.BadfilterRules)
	assert.Equal(t, 1, stats.CancelledByBadfilter)
}

func TestOptimizeBadfilterOnlyCancelsMatchingKey(t *testing.T) {
	rules := []networkRule{
		{Action: snapshot.ActionBlock, HostLiteral: "ads.example.com", ListID: 1},
		{Action: snapshot.ActionBlock, HostLiteral: "other.example.com", ListID: 1, IsBadfilter: true},
	}
	var stats Stats
	out := optimizeNetworkRules(rules, &stats)
	assert.Len(t, out, 1)
	assert.Equal(t, 0, stats.CancelledByBadfilter)
}

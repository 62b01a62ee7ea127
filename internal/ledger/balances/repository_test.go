package balances

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The cutoff must restrict which lines are aggregated, not just which entry
// headers are visible: a date predicate on an outer entry join leaves every
// line row in the sum and the cutoff has no effect.
func TestBalanceQueriesConstrainLineSetByCutoff(t *testing.T) {
	for name, query := range map[string]string{
		"all accounts": buildBalancesQuery(2),
		"one account":  buildAccountBalanceQuery(3),
	} {
		joinIdx := strings.Index(query, "LEFT JOIN")
		require.GreaterOrEqual(t, joinIdx, 0, name)
		onIdx := strings.Index(query, ") l ON l.account_id = a.id")
		require.GreaterOrEqual(t, onIdx, 0, name)

		// The date predicate sits inside the derived line set, before the
		// join condition.
		source := query[joinIdx:onIdx]
		assert.Contains(t, source, "JOIN journal_entries je ON je.id = jl.entry_id", name)
		assert.Contains(t, source, "WHERE je.date <= $", name)
		assert.NotContains(t, query[onIdx:], "je.date", name)
	}
}

func TestBalanceQueriesWithoutCutoff(t *testing.T) {
	for name, query := range map[string]string{
		"all accounts": buildBalancesQuery(0),
		"one account":  buildAccountBalanceQuery(0),
	} {
		assert.Contains(t, query, "LEFT JOIN journal_lines l ON l.account_id = a.id", name)
		assert.NotContains(t, query, "je.date", name)
	}
}

func TestBalanceQueryParameterPositions(t *testing.T) {
	assert.Contains(t, buildBalancesQuery(2), "WHERE je.date <= $2")
	assert.Contains(t, buildAccountBalanceQuery(3), "WHERE je.date <= $3")
}

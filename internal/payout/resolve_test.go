package payout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrilink-erp/agrilink/internal/upstream"
)

func testResolver() *resolver {
	return newResolver([]upstream.Entity{
		{ID: "D1", Name: "Ravi Kumar", Code: "KA-01"},
		{ID: "D2", Name: "Suresh", Code: "KA-02"},
	})
}

func TestResolveExactID(t *testing.T) {
	r := testResolver()
	e, ok := r.resolve("D1")
	require.True(t, ok)
	require.Equal(t, "D1", e.ID)
}

func TestResolveNormalizedName(t *testing.T) {
	r := testResolver()
	for _, ref := range []string{"Ravi Kumar", "ravi kumar", "  RAVI   KUMAR  "} {
		e, ok := r.resolve(ref)
		require.True(t, ok, "ref %q", ref)
		require.Equal(t, "D1", e.ID)
	}
}

func TestResolveCompoundNameCode(t *testing.T) {
	r := testResolver()

	e, ok := r.resolve("Ravi Kumar - KA-01")
	require.True(t, ok)
	require.Equal(t, "D1", e.ID)

	// Misspelled name still resolves through the code segment.
	e, ok = r.resolve("Ravi Kumarr - KA-01")
	require.True(t, ok)
	require.Equal(t, "D1", e.ID)

	// Code segment that is actually an id.
	e, ok = r.resolve("Someone Else - D2")
	require.True(t, ok)
	require.Equal(t, "D2", e.ID)
}

func TestResolveStrategyOrder(t *testing.T) {
	// An id that is also another entity's name must resolve as id first.
	r := newResolver([]upstream.Entity{
		{ID: "Suresh", Name: "Someone"},
		{ID: "D2", Name: "Suresh"},
	})
	e, ok := r.resolve("Suresh")
	require.True(t, ok)
	require.Equal(t, "Suresh", e.ID)
}

func TestResolveMiss(t *testing.T) {
	r := testResolver()
	for _, ref := range []string{"", "   ", "Nobody", "No Match - ZZ-99"} {
		_, ok := r.resolve(ref)
		require.False(t, ok, "ref %q", ref)
	}
}

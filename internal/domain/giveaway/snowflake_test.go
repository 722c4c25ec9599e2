package giveaway

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGeneratorMonotonic(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := &IDGenerator{now: func() time.Time { return frozen }}

	ids := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		ids = append(ids, g.Next())
	}

	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 }))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}

	ts, ok := IDTime(ids[0])
	require.True(t, ok)
	assert.Equal(t, frozen, ts)
}

func TestIDGeneratorClockBackwards(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := &IDGenerator{now: func() time.Time { return now }}

	first := g.Next()
	now = now.Add(-time.Second)
	second := g.Next()

	assert.Equal(t, 1, CompareIDs(second, first))
}

func TestIDTime(t *testing.T) {
	_, ok := IDTime("not-a-number")
	assert.False(t, ok)

	at := time.Date(2023, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	g := &IDGenerator{now: func() time.Time { return at }}
	got, ok := IDTime(g.Next())
	require.True(t, ok)
	assert.Equal(t, at, got)
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("9", "10"))
	assert.Equal(t, 0, CompareIDs("10", "10"))
	assert.Equal(t, -1, CompareIDs("abc", "1"))
	assert.Equal(t, 1, CompareIDs("b", "a"))
}

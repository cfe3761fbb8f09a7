package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	key string
	val int
}

func TestDedupeByKey_LastWins(t *testing.T) {
	items := []row{
		{"AAPL", 1},
		{"MSFT", 2},
		{"AAPL", 3},
	}

	out := DedupeByKey(items, func(r row) string { return r.key })

	require.Len(t, out, 2)
	assert.Equal(t, row{"MSFT", 2}, out[0])
	assert.Equal(t, row{"AAPL", 3}, out[1], "later duplicate must replace the earlier one")
}

func TestDedupeByKey_NoDuplicates(t *testing.T) {
	items := []row{{"A", 1}, {"B", 2}}
	out := DedupeByKey(items, func(r row) string { return r.key })
	assert.Equal(t, items, out)
}

func TestDedupeByKey_Empty(t *testing.T) {
	out := DedupeByKey(nil, func(r row) string { return r.key })
	assert.Empty(t, out)
}

func TestChunk(t *testing.T) {
	items := make([]int, 7)
	for i := range items {
		items[i] = i
	}

	chunks := Chunk(items, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)
	assert.Equal(t, 6, chunks[2][0])
}

func TestChunk_DefaultSize(t *testing.T) {
	items := make([]int, DefaultChunkSize+1)
	chunks := Chunk(items, 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultChunkSize)
}

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk([]int{}, 10))
}

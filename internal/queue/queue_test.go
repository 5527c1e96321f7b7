package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrdering(t *testing.T) {
	pq := NewMin(8)
	for _, p := range []float32{5, 1, 4, 2, 3} {
		pq.Push(Item{Ref: uint64(p), Priority: p})
	}

	var got []float32
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		got = append(got, item.Priority)
	}
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)
}

func TestMaxHeapOrdering(t *testing.T) {
	pq := NewMax(8)
	for _, p := range []float32{5, 1, 4, 2, 3} {
		pq.Push(Item{Priority: p})
	}

	var got []float32
	for pq.Len() > 0 {
		item, _ := pq.Pop()
		got = append(got, item.Priority)
	}
	assert.Equal(t, []float32{5, 4, 3, 2, 1}, got)
}

func TestTopAndEmpty(t *testing.T) {
	pq := NewMax(4)

	_, ok := pq.Top()
	assert.False(t, ok)
	_, ok = pq.Pop()
	assert.False(t, ok)

	pq.Push(Item{Ref: 7, Priority: 1})
	pq.Push(Item{Ref: 8, Priority: 9})

	top, ok := pq.Top()
	require.True(t, ok)
	assert.Equal(t, uint64(8), top.Ref)
	assert.Equal(t, 2, pq.Len())
}

func TestReset(t *testing.T) {
	pq := NewMin(4)
	pq.Push(Item{Priority: 1})
	pq.Reset()
	assert.Equal(t, 0, pq.Len())
	_, ok := pq.Pop()
	assert.False(t, ok)
}

func TestRandomizedAgainstSort(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	pq := NewMin(128)
	want := make([]float32, 0, 128)

	for range 128 {
		p := r.Float32()
		want = append(want, p)
		pq.Push(Item{Priority: p})
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	for i := range want {
		item, ok := pq.Pop()
		require.True(t, ok)
		assert.Equal(t, want[i], item.Priority, "position %d", i)
	}
}

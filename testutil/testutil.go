// Package testutil provides helpers for tests and benchmarks: seeded
// vector generation and a brute-force reference search for measuring
// recall.
package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/vectorstore"
)

// RNG encapsulates a random number generator and its seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformVectors generates random vectors with values in range [-1, 1).
// A single backing array keeps the fixture cache-friendly.
func (r *RNG) UniformVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		vectors[i] = vec
	}

	return vectors
}

// FillStore creates a vector store populated with num random vectors.
func (r *RNG) FillStore(num, dimensions int) *vectorstore.Store {
	store := vectorstore.NewWithCapacity(dimensions, num)
	for _, v := range r.UniformVectors(num, dimensions) {
		if _, err := store.Append(v); err != nil {
			panic(err)
		}
	}
	return store
}

// Neighbor is one entry of a brute-force reference ranking.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// BruteForce returns the exact k nearest neighbors of q by scanning the
// whole store, ordered by ascending distance with ties broken by id.
// exclude skips one id (pass a value >= store.Size() to skip none).
func BruteForce(store *vectorstore.Store, q []float32, k int, m distance.Metric, exclude uint32) []Neighbor {
	fn, err := distance.Provider(m)
	if err != nil {
		panic(err)
	}

	all := make([]Neighbor, 0, store.Size())
	for id := range store.Size() {
		if uint32(id) == exclude {
			continue
		}
		v, err := store.Get(uint32(id))
		if err != nil {
			panic(err)
		}
		all = append(all, Neighbor{ID: uint32(id), Distance: fn(q, v)})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})

	if len(all) > k {
		all = all[:k]
	}
	return all
}

// Recall measures the fraction of reference ids present in got.
func Recall(reference []Neighbor, got []uint32) float64 {
	if len(reference) == 0 {
		return 1
	}
	want := make(map[uint32]struct{}, len(reference))
	for _, n := range reference {
		want[n.ID] = struct{}{}
	}
	hits := 0
	for _, id := range got {
		if _, ok := want[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(reference))
}

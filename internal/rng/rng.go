// Package rng provides deterministic, splittable random number generation
// for index construction.
//
// Tree builds must be reproducible: the same build seed has to produce a
// bit-identical forest regardless of worker scheduling. Each tree node
// therefore derives its own generator from (build seed, tree index, node
// path) instead of sharing a sequential stream.
package rng

// splitmix64 is the finalizer from Steele et al., "Fast Splittable
// Pseudorandom Number Generators". It is also the recommended seeding
// procedure for other generators, which makes it a good one-way mixer
// for deriving child seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Derive mixes a seed with a salt into a new independent seed.
func Derive(seed, salt uint64) uint64 {
	return splitmix64(seed ^ splitmix64(salt))
}

// Source is a deterministic splitmix64 stream.
type Source struct {
	state uint64
}

// New creates a Source seeded with the given value.
func New(seed uint64) *Source {
	return &Source{state: seed}
}

// Uint64 returns the next value in the stream.
func (s *Source) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	x := s.state
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Intn returns a value in [0, n). Panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with non-positive n")
	}
	return int(s.Uint64() % uint64(n))
}

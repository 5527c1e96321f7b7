package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceDeterminism(t *testing.T) {
	a := New(42)
	b := New(42)
	for range 100 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestSourceSeedSensitivity(t *testing.T) {
	a := New(1)
	b := New(2)
	assert.NotEqual(t, a.Uint64(), b.Uint64())
}

func TestDerive(t *testing.T) {
	assert.Equal(t, Derive(7, 3), Derive(7, 3))
	assert.NotEqual(t, Derive(7, 3), Derive(7, 4))
	assert.NotEqual(t, Derive(7, 3), Derive(8, 3))
}

func TestIntnRange(t *testing.T) {
	s := New(99)
	for range 1000 {
		v := s.Intn(10)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
}

func TestIntnPanics(t *testing.T) {
	s := New(1)
	assert.Panics(t, func() { s.Intn(0) })
}

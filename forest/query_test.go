package forest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/testutil"
	"github.com/hupe1980/annforest/vectorstore"
)

func buildFixture(t *testing.T, store *vectorstore.Store, treeCount int) *Forest {
	t.Helper()
	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = treeCount
		o.LeafCapacity = 8
		o.Seed = 42
	})
	require.NoError(t, err)
	return f
}

func TestSearchValidation(t *testing.T) {
	store := testutil.NewRNG(1).FillStore(50, 4)
	f := buildFixture(t, store, 2)
	ctx := context.Background()

	t.Run("InvalidK", func(t *testing.T) {
		_, err := f.SearchByVector(ctx, store, []float32{0, 0, 0, 0}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)

		_, err = f.SearchByID(ctx, store, 0, -1)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := f.SearchByVector(ctx, store, []float32{0, 0}, 1)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 4, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
	})

	t.Run("WrongStoreDimension", func(t *testing.T) {
		other := vectorstore.NewWithDimension(7)
		_, err := other.Append(make([]float32, 7))
		require.NoError(t, err)

		_, err = f.SearchByVector(ctx, other, []float32{0, 0, 0, 0}, 1)
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("NilStore", func(t *testing.T) {
		_, err := f.SearchByVector(ctx, nil, []float32{0, 0, 0, 0}, 1)
		assert.ErrorIs(t, err, ErrEmptyStore)

		_, err = f.SearchByID(ctx, nil, 0, 1)
		assert.ErrorIs(t, err, ErrEmptyStore)
	})

	t.Run("EmptyStore", func(t *testing.T) {
		empty := vectorstore.NewWithDimension(4)
		_, err := f.SearchByVector(ctx, empty, []float32{0, 0, 0, 0}, 1)
		assert.ErrorIs(t, err, ErrEmptyStore)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := f.SearchByID(ctx, store, 9999, 1)
		var nf *vectorstore.ErrIDNotFound
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, uint32(9999), nf.ID)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.SearchByVector(canceled, store, []float32{0, 0, 0, 0}, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSearchByIDNearestNeighbor(t *testing.T) {
	// True nearest neighbor of item 0 is item 1 at distance 1.0;
	// item 2 sits far away at sqrt(200).
	store := vectorstore.New()
	require.NoError(t, store.Add(0, []float32{0, 0}))
	require.NoError(t, store.Add(1, []float32{1, 0}))
	require.NoError(t, store.Add(2, []float32{10, 10}))

	f := buildFixture(t, store, 4)

	results, err := f.SearchByID(context.Background(), store, 0, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(1), results[0].ID)
	assert.InDelta(t, 1.0, results[0].Distance, 1e-6)

	results, err = f.SearchByID(context.Background(), store, 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(1), results[0].ID)
	assert.Equal(t, uint32(2), results[1].ID)
	assert.InDelta(t, 14.142136, results[1].Distance, 1e-4)
}

func TestSearchByIDExcludesSelf(t *testing.T) {
	store := testutil.NewRNG(2).FillStore(100, 8)
	f := buildFixture(t, store, 4)

	for id := range 20 {
		results, err := f.SearchByID(context.Background(), store, uint32(id), 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, uint32(id), r.ID)
		}
	}
}

func TestSearchResultsSortedAndBounded(t *testing.T) {
	store := testutil.NewRNG(3).FillStore(200, 8)
	f := buildFixture(t, store, 4)
	q := testutil.NewRNG(4).UniformVectors(1, 8)[0]

	for _, k := range []int{1, 5, 50, 500} {
		results, err := f.SearchByVector(context.Background(), store, q, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)

		sorted := sort.SliceIsSorted(results, func(i, j int) bool {
			if results[i].Distance != results[j].Distance {
				return results[i].Distance < results[j].Distance
			}
			return results[i].ID < results[j].ID
		})
		assert.True(t, sorted, "k=%d", k)
	}
}

func TestSearchSingleItemStore(t *testing.T) {
	store := vectorstore.New()
	require.NoError(t, store.Add(0, []float32{1, 2}))
	f := buildFixture(t, store, 3)

	results, err := f.SearchByID(context.Background(), store, 0, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDeterministicAcrossCalls(t *testing.T) {
	store := testutil.NewRNG(5).FillStore(300, 16)
	f := buildFixture(t, store, 4)
	q := testutil.NewRNG(6).UniformVectors(1, 16)[0]

	a, err := f.SearchByVector(context.Background(), store, q, 10)
	require.NoError(t, err)
	b, err := f.SearchByVector(context.Background(), store, q, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearchRecallImprovesWithTrees(t *testing.T) {
	const (
		n       = 256
		dim     = 8
		k       = 10
		queries = 20
	)
	store := testutil.NewRNG(7).FillStore(n, dim)
	qs := testutil.NewRNG(8).UniformVectors(queries, dim)

	measure := func(f *Forest, multiplier int) float64 {
		var total float64
		for _, q := range qs {
			ref := testutil.BruteForce(store, q, k, distance.MetricEuclidean, uint32(n))
			results, err := f.SearchByVector(context.Background(), store, q, k, func(o *SearchOptions) {
				o.Multiplier = multiplier
			})
			require.NoError(t, err)
			ids := make([]uint32, len(results))
			for i, r := range results {
				ids[i] = r.ID
			}
			total += testutil.Recall(ref, ids)
		}
		return total / queries
	}

	small := buildFixture(t, store, 1)
	large := buildFixture(t, store, 10)

	recallSmall := measure(small, 4)
	recallLarge := measure(large, 4)

	assert.GreaterOrEqual(t, recallLarge, recallSmall-0.05,
		"recall must not degrade when adding trees (small=%f large=%f)", recallSmall, recallLarge)
	assert.GreaterOrEqual(t, recallLarge, 0.6, "10 trees at multiplier 4 should find most true neighbors")
}

func TestSearchMultiplierWidensCandidates(t *testing.T) {
	store := testutil.NewRNG(9).FillStore(500, 8)
	f := buildFixture(t, store, 2)
	q := testutil.NewRNG(10).UniformVectors(1, 8)[0]

	narrow, err := f.SearchByVector(context.Background(), store, q, 100)
	require.NoError(t, err)
	wide, err := f.SearchByVector(context.Background(), store, q, 100, func(o *SearchOptions) {
		o.Multiplier = 8
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(wide), len(narrow))
}

func TestSearchAngularMetric(t *testing.T) {
	store := vectorstore.New()
	require.NoError(t, store.Add(0, []float32{1, 0}))
	require.NoError(t, store.Add(1, []float32{2, 0.1})) // almost parallel to item 0
	require.NoError(t, store.Add(2, []float32{0, 3}))   // orthogonal

	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = 4
		o.LeafCapacity = 8
		o.Metric = distance.MetricAngular
	})
	require.NoError(t, err)

	results, err := f.SearchByID(context.Background(), store, 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(1), results[0].ID)
	assert.Equal(t, uint32(2), results[1].ID)
}

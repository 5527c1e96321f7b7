package forest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/resource"
	"github.com/hupe1980/annforest/testutil"
	"github.com/hupe1980/annforest/vectorstore"
)

func TestBuildValidation(t *testing.T) {
	store := testutil.NewRNG(1).FillStore(10, 4)

	t.Run("EmptyStore", func(t *testing.T) {
		_, err := Build(context.Background(), vectorstore.New())
		assert.ErrorIs(t, err, ErrEmptyStore)

		_, err = Build(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyStore)
	})

	t.Run("InvalidTreeCount", func(t *testing.T) {
		_, err := Build(context.Background(), store, func(o *Options) {
			o.TreeCount = 0
		})
		var ic *ErrInvalidConfig
		require.ErrorAs(t, err, &ic)
		assert.Equal(t, "tree count", ic.Param)
	})

	t.Run("InvalidLeafCapacity", func(t *testing.T) {
		_, err := Build(context.Background(), store, func(o *Options) {
			o.LeafCapacity = -1
		})
		var ic *ErrInvalidConfig
		require.ErrorAs(t, err, &ic)
		assert.Equal(t, "leaf capacity", ic.Param)
	})

	t.Run("InvalidMetric", func(t *testing.T) {
		_, err := Build(context.Background(), store, func(o *Options) {
			o.Metric = distance.Metric(99)
		})
		var ic *ErrInvalidConfig
		require.ErrorAs(t, err, &ic)
		assert.Equal(t, "metric", ic.Param)
	})
}

func TestBuildDeterminism(t *testing.T) {
	store := testutil.NewRNG(2).FillStore(300, 16)

	build := func(seed uint64) *Forest {
		f, err := Build(context.Background(), store, func(o *Options) {
			o.TreeCount = 4
			o.LeafCapacity = 8
			o.Seed = seed
		})
		require.NoError(t, err)
		return f
	}

	a := build(42)
	b := build(42)
	assert.Equal(t, a.Trees(), b.Trees())

	c := build(43)
	assert.NotEqual(t, a.Trees(), c.Trees())
}

func TestBuildCoversAllItems(t *testing.T) {
	const n = 137
	store := testutil.NewRNG(3).FillStore(n, 8)

	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = 3
		o.LeafCapacity = 4
	})
	require.NoError(t, err)

	for ti, tree := range f.Trees() {
		seen := make(map[uint32]int)
		for i := range tree.Nodes {
			node := &tree.Nodes[i]
			if node.IsLeaf() {
				assert.LessOrEqual(t, len(node.Items), f.LeafCapacity())
				for _, id := range node.Items {
					seen[id]++
				}
			} else {
				assert.GreaterOrEqual(t, node.Left, int32(0))
				assert.GreaterOrEqual(t, node.Right, int32(0))
				assert.Len(t, node.Normal, f.Dimension())
			}
		}
		assert.Len(t, seen, n, "tree %d must cover all items", ti)
		for id, count := range seen {
			assert.Equal(t, 1, count, "tree %d item %d", ti, id)
		}
	}
}

func TestBuildTerminatesOnDuplicateData(t *testing.T) {
	// Identical vectors defeat hyperplane sampling; the forced id-order
	// split must still terminate the recursion.
	store := vectorstore.New()
	for i := range 64 {
		require.NoError(t, store.Add(uint32(i), []float32{1, 1, 1}))
	}

	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = 2
		o.LeafCapacity = 4
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.TreeCount())
}

func TestBuildSingleItem(t *testing.T) {
	store := vectorstore.New()
	require.NoError(t, store.Add(0, []float32{1, 2}))

	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = 5
		o.LeafCapacity = 3
	})
	require.NoError(t, err)

	for _, tree := range f.Trees() {
		require.Len(t, tree.Nodes, 1)
		assert.True(t, tree.Nodes[0].IsLeaf())
		assert.Equal(t, []uint32{0}, tree.Nodes[0].Items)
	}
}

func TestBuildCancellation(t *testing.T) {
	store := testutil.NewRNG(4).FillStore(100, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := Build(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, f)
}

func TestBuildWithController(t *testing.T) {
	store := testutil.NewRNG(5).FillStore(100, 8)
	ctrl := resource.NewController(resource.Config{MaxWorkers: 1})

	f, err := Build(context.Background(), store, func(o *Options) {
		o.TreeCount = 4
		o.Controller = ctrl
	})
	require.NoError(t, err)
	assert.Equal(t, 4, f.TreeCount())
}

func TestBuildDoesNotMutateStore(t *testing.T) {
	store := vectorstore.New()
	require.NoError(t, store.Add(0, []float32{1, 2}))
	require.NoError(t, store.Add(1, []float32{3, 4}))

	_, err := Build(context.Background(), store)
	require.NoError(t, err)

	v, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.Equal(t, 2, store.Size())
}

func TestRestoreValidation(t *testing.T) {
	leaf := Tree{Nodes: []Node{{Left: NoChild, Right: NoChild, Items: []uint32{0}}}}

	t.Run("OK", func(t *testing.T) {
		f, err := Restore(2, distance.MetricAngular, 4, 7, []Tree{leaf})
		require.NoError(t, err)
		assert.Equal(t, 2, f.Dimension())
		assert.Equal(t, distance.MetricAngular, f.Metric())
		assert.Equal(t, uint64(7), f.Seed())
	})

	t.Run("BadDimension", func(t *testing.T) {
		_, err := Restore(0, distance.MetricEuclidean, 4, 0, []Tree{leaf})
		assert.Error(t, err)
	})

	t.Run("NoTrees", func(t *testing.T) {
		_, err := Restore(2, distance.MetricEuclidean, 4, 0, nil)
		assert.Error(t, err)
	})

	t.Run("EmptyTree", func(t *testing.T) {
		_, err := Restore(2, distance.MetricEuclidean, 4, 0, []Tree{{}})
		assert.Error(t, err)
	})
}

package forest

import (
	"context"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/internal/queue"
	"github.com/hupe1980/annforest/vectorstore"
)

// SearchResult is one ranked neighbor.
type SearchResult struct {
	// ID is the item id of the neighbor.
	ID uint32

	// Distance is the exact distance to the query under the forest's
	// configured metric.
	Distance float32
}

// SearchOptions contains per-query tuning knobs.
type SearchOptions struct {
	// Multiplier scales the leaf-visit budget: the traversal inspects up
	// to Multiplier×TreeCount leaves. 1 visits roughly one leaf per
	// tree; larger values trade latency for recall. Recall grows
	// monotonically with the multiplier but carries no exactness
	// guarantee.
	Multiplier int
}

// DefaultSearchOptions contains the default query configuration.
var DefaultSearchOptions = SearchOptions{
	Multiplier: 1,
}

// SearchByVector returns the approximate k nearest neighbors of q,
// ordered by ascending exact distance with ties broken by ascending id.
//
// The store must be the same id space the forest was built over; vectors
// are fetched from it for exact re-ranking.
func (f *Forest) SearchByVector(ctx context.Context, store *vectorstore.Store, q []float32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	return f.search(ctx, store, q, k, noExclusion, optFns)
}

// SearchByID returns the approximate k nearest neighbors of the stored
// item id, excluding the item itself.
//
// An id absent from the store is an error, never an empty result.
func (f *Forest) SearchByID(ctx context.Context, store *vectorstore.Store, id uint32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	if store == nil || store.Size() == 0 {
		return nil, ErrEmptyStore
	}
	q, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	return f.search(ctx, store, q, k, id, optFns)
}

// noExclusion is an id value that never matches a stored item: stores are
// bounded well below the full uint32 range by available memory, and the
// builder only ever sees dense ids.
const noExclusion = math.MaxUint32

func (f *Forest) search(ctx context.Context, store *vectorstore.Store, q []float32, k int, exclude uint32, optFns []func(o *SearchOptions)) ([]SearchResult, error) {
	opts := DefaultSearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 1
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}
	if store == nil || store.Size() == 0 {
		return nil, ErrEmptyStore
	}
	if len(q) != f.dimension {
		return nil, &ErrDimensionMismatch{Expected: f.dimension, Actual: len(q)}
	}
	if store.Dimension() != f.dimension {
		return nil, &ErrDimensionMismatch{Expected: f.dimension, Actual: store.Dimension()}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, err := f.collect(ctx, q, opts.Multiplier)
	if err != nil {
		return nil, err
	}

	return f.rank(store, q, k, exclude, candidates)
}

// collect gathers candidate ids by walking all trees through a single
// bounded priority frontier.
//
// The frontier orders pending nodes by margin: the smallest distance to
// any splitting hyperplane crossed on the way down. Popping the largest
// margin first descends each tree along the query's side of every split,
// then revisits the siblings whose hyperplanes pass closest to the query.
// The leaf-visit budget bounds the total work.
func (f *Forest) collect(ctx context.Context, q []float32, multiplier int) (*roaring.Bitmap, error) {
	budget := multiplier * len(f.trees)

	frontier := queue.NewMax(2 * budget)
	for ti := range f.trees {
		frontier.Push(queue.Item{
			Ref:      packRef(ti, 0),
			Priority: math.MaxFloat32,
		})
	}

	candidates := roaring.New()

	visited := 0
	steps := 0
	for visited < budget {
		item, ok := frontier.Pop()
		if !ok {
			break
		}

		steps++
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		ti, ni := unpackRef(item.Ref)
		node := &f.trees[ti].Nodes[ni]

		if node.IsLeaf() {
			candidates.AddMany(node.Items)
			visited++
			continue
		}

		margin := distance.Dot(q, node.Normal) - node.Offset
		frontier.Push(queue.Item{
			Ref:      packRef(ti, node.Right),
			Priority: minf(item.Priority, margin),
		})
		frontier.Push(queue.Item{
			Ref:      packRef(ti, node.Left),
			Priority: minf(item.Priority, -margin),
		})
	}

	return candidates, nil
}

// rank computes exact distances for all candidates and returns the top k.
func (f *Forest) rank(store *vectorstore.Store, q []float32, k int, exclude uint32, candidates *roaring.Bitmap) ([]SearchResult, error) {
	fn, err := distance.Provider(f.metric)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, int(candidates.GetCardinality()))

	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		if id == exclude {
			continue
		}
		v, err := store.Get(id)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{ID: id, Distance: fn(q, v)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// packRef packs a (tree, node) pair into a frontier reference.
func packRef(tree int, node int32) uint64 {
	return uint64(tree)<<32 | uint64(uint32(node))
}

func unpackRef(ref uint64) (tree int, node int32) {
	return int(ref >> 32), int32(uint32(ref))
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

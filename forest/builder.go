package forest

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/annforest/distance"
	"github.com/hupe1980/annforest/internal/rng"
	"github.com/hupe1980/annforest/resource"
	"github.com/hupe1980/annforest/vectorstore"
)

// maxSplitAttempts bounds resampling when a random hyperplane leaves all
// items on one side. After that many attempts the node is force-split by
// id order, which guarantees termination on duplicate or collinear data.
const maxSplitAttempts = 3

// ctxCheckInterval is the node-count stride between cancellation checks
// inside a single tree build.
const ctxCheckInterval = 1024

// Options contains configuration options for building a forest.
type Options struct {
	// TreeCount is the number of independently randomized trees.
	// More trees improve recall at the cost of build time, memory and
	// query latency.
	TreeCount int

	// LeafCapacity is the maximum number of items stored at a leaf
	// before exact ranking within it.
	LeafCapacity int

	// Seed makes builds reproducible: two builds with equal seeds over
	// the same store produce bit-identical forests.
	Seed uint64

	// Metric is the distance metric used for exact re-ranking at query
	// time. It is recorded in the forest and its persisted form.
	Metric distance.Metric

	// MaxWorkers caps the number of trees built concurrently.
	// Defaults to GOMAXPROCS.
	MaxWorkers int

	// Controller optionally gates tree construction through a shared
	// resource controller.
	Controller *resource.Controller
}

// DefaultOptions contains the default build configuration.
var DefaultOptions = Options{
	TreeCount:    8,
	LeafCapacity: 16,
	Seed:         0,
	Metric:       distance.MetricEuclidean,
}

// Build constructs a forest over the given store.
//
// Trees are built in parallel; each tree only reads the shared store and
// writes its own private arena, so no locking is involved. If ctx is
// canceled mid-build, Build abandons the remaining trees and returns the
// completed ones (in tree order) together with the context error — the
// partial forest is valid, just smaller than requested. Every other
// failure returns a nil forest.
func Build(ctx context.Context, store *vectorstore.Store, optFns ...func(o *Options)) (*Forest, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TreeCount < 1 {
		return nil, &ErrInvalidConfig{Param: "tree count", Value: opts.TreeCount}
	}
	if opts.LeafCapacity < 1 {
		return nil, &ErrInvalidConfig{Param: "leaf capacity", Value: opts.LeafCapacity}
	}
	if !opts.Metric.Valid() {
		return nil, &ErrInvalidConfig{Param: "metric", Value: int(opts.Metric)}
	}
	if store == nil || store.Size() == 0 {
		return nil, ErrEmptyStore
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	trees := make([]Tree, opts.TreeCount)
	built := make([]bool, opts.TreeCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i := range opts.TreeCount {
		g.Go(func() error {
			// Cooperative cancellation between tree constructions.
			if err := gctx.Err(); err != nil {
				return err
			}

			if opts.Controller != nil {
				if err := opts.Controller.AcquireWorker(gctx); err != nil {
					return err
				}
				defer opts.Controller.ReleaseWorker()
			}

			tb := &treeBuilder{
				store:   store,
				leafCap: opts.LeafCapacity,
			}
			t, err := tb.build(gctx, rng.Derive(opts.Seed, uint64(i)+1))
			if err != nil {
				return err
			}

			trees[i] = t
			built[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		return &Forest{
			dimension:    store.Dimension(),
			metric:       opts.Metric,
			leafCapacity: opts.LeafCapacity,
			seed:         opts.Seed,
			trees:        trees,
		}, nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		completed := make([]Tree, 0, opts.TreeCount)
		for i := range trees {
			if built[i] {
				completed = append(completed, trees[i])
			}
		}
		if len(completed) > 0 {
			partial := &Forest{
				dimension:    store.Dimension(),
				metric:       opts.Metric,
				leafCapacity: opts.LeafCapacity,
				seed:         opts.Seed,
				trees:        completed,
			}
			return partial, err
		}
	}

	return nil, err
}

// treeBuilder accumulates one tree's node arena.
type treeBuilder struct {
	store   *vectorstore.Store
	leafCap int
	nodes   []Node
}

func (tb *treeBuilder) build(ctx context.Context, seed uint64) (Tree, error) {
	n := tb.store.Size()
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}

	// Expected arena size is ~2*N/K nodes; over-reserve slightly to
	// absorb unbalanced splits.
	tb.nodes = make([]Node, 0, 3*n/tb.leafCap+1)

	if _, err := tb.partition(ctx, seed, ids); err != nil {
		return Tree{}, err
	}
	return Tree{Nodes: tb.nodes}, nil
}

// partition recursively splits ids and appends nodes in pre-order,
// returning the index of the node it created.
//
// ids must be sorted ascending; splits preserve relative order, so the
// invariant holds down the whole tree and makes the forced degenerate
// split (first half / second half) deterministic.
func (tb *treeBuilder) partition(ctx context.Context, seed uint64, ids []uint32) (int32, error) {
	if len(tb.nodes)%ctxCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	idx := int32(len(tb.nodes))

	if len(ids) <= tb.leafCap {
		tb.nodes = append(tb.nodes, Node{
			Left:  NoChild,
			Right: NoChild,
			Items: ids,
		})
		return idx, nil
	}

	src := rng.New(seed)
	normal, offset, left, right := tb.split(src, ids)

	// Reserve the internal node slot before recursing so children land
	// behind their parent in pre-order.
	tb.nodes = append(tb.nodes, Node{Normal: normal, Offset: offset})

	leftIdx, err := tb.partition(ctx, rng.Derive(seed, 2), left)
	if err != nil {
		return 0, err
	}
	rightIdx, err := tb.partition(ctx, rng.Derive(seed, 3), right)
	if err != nil {
		return 0, err
	}

	tb.nodes[idx].Left = leftIdx
	tb.nodes[idx].Right = rightIdx
	return idx, nil
}

// split samples a random hyperplane through the id set and partitions it.
//
// The hyperplane is the perpendicular bisector of two randomly drawn
// items: normal = a - b, offset = dot(normal, midpoint(a, b)). Degenerate
// samples (all items on one side) are retried up to maxSplitAttempts
// before falling back to an id-order split.
func (tb *treeBuilder) split(src *rng.Source, ids []uint32) (normal []float32, offset float32, left, right []uint32) {
	for range maxSplitAttempts {
		ai := src.Intn(len(ids))
		bi := src.Intn(len(ids) - 1)
		if bi >= ai {
			bi++
		}

		a, _ := tb.store.Get(ids[ai])
		b, _ := tb.store.Get(ids[bi])

		n := make([]float32, len(a))
		var off float32
		for d := range a {
			n[d] = a[d] - b[d]
			off += n[d] * (a[d] + b[d]) / 2
		}

		l := make([]uint32, 0, len(ids)/2+1)
		r := make([]uint32, 0, len(ids)/2+1)
		for _, id := range ids {
			v, _ := tb.store.Get(id)
			if distance.Dot(v, n) > off {
				r = append(r, id)
			} else {
				l = append(l, id)
			}
		}

		if len(l) > 0 && len(r) > 0 {
			return n, off, l, r
		}
	}

	// Forced split by id order. The zero normal yields a zero margin for
	// every query, keeping both halves equally reachable through the
	// search frontier.
	half := len(ids) / 2
	return make([]float32, tb.store.Dimension()), 0, ids[:half], ids[half:]
}

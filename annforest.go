package annforest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/annforest/blobstore"
	"github.com/hupe1980/annforest/forest"
	"github.com/hupe1980/annforest/persistence"
	"github.com/hupe1980/annforest/vectorstore"
)

// SearchResult is one ranked neighbor.
type SearchResult = forest.SearchResult

// Index couples a frozen vector store with a forest built over it. An
// Index is immutable and safe for unsynchronized concurrent queries.
type Index struct {
	store  *vectorstore.Store
	forest *forest.Forest
	opts   options
}

// Build constructs an index over the given store.
func Build(ctx context.Context, store *vectorstore.Store, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	start := time.Now()

	f, err := forest.Build(ctx, store, func(o *forest.Options) {
		o.TreeCount = opts.treeCount
		o.LeafCapacity = opts.leafCapacity
		o.Seed = opts.seed
		o.Metric = opts.metric
		o.MaxWorkers = opts.maxWorkers
		o.Controller = opts.controller
	})

	items := 0
	if store != nil {
		items = store.Size()
	}

	opts.logger.LogBuild(ctx, opts.treeCount, items, time.Since(start), err)
	opts.metricsCollector.RecordBuild(opts.treeCount, time.Since(start), err)

	if err != nil {
		return nil, translateError(err)
	}

	return &Index{
		store:  store,
		forest: f,
		opts:   opts,
	}, nil
}

// Store returns the vector store the index was built over.
func (idx *Index) Store() *vectorstore.Store {
	return idx.store
}

// Forest returns the underlying tree forest.
func (idx *Index) Forest() *forest.Forest {
	return idx.forest
}

// QueryByVector returns the k approximate nearest neighbors of q,
// sorted by ascending distance with ties broken by ascending id.
func (idx *Index) QueryByVector(ctx context.Context, q []float32, k int) ([]SearchResult, error) {
	start := time.Now()

	results, err := idx.forest.SearchByVector(ctx, idx.store, q, k, func(o *forest.SearchOptions) {
		o.Multiplier = idx.opts.multiplier
	})

	idx.opts.logger.LogSearch(ctx, k, len(results), time.Since(start), err)
	idx.opts.metricsCollector.RecordSearch(k, time.Since(start), err)

	return results, translateError(err)
}

// QueryByID returns the k approximate nearest neighbors of a stored
// item, excluding the item itself.
func (idx *Index) QueryByID(ctx context.Context, id uint32, k int) ([]SearchResult, error) {
	start := time.Now()

	results, err := idx.forest.SearchByID(ctx, idx.store, id, k, func(o *forest.SearchOptions) {
		o.Multiplier = idx.opts.multiplier
	})

	idx.opts.logger.LogSearch(ctx, k, len(results), time.Since(start), err)
	idx.opts.metricsCollector.RecordSearch(k, time.Since(start), err)

	return results, translateError(err)
}

// Save writes the forest to path atomically.
func (idx *Index) Save(ctx context.Context, path string) error {
	start := time.Now()

	err := persistence.Save(ctx, idx.forest, path, func(o *persistence.FileOptions) {
		o.Compression = idx.opts.compression
		o.Controller = idx.opts.controller
	})

	idx.opts.logger.LogSave(ctx, path, time.Since(start), err)
	idx.opts.metricsCollector.RecordSave(time.Since(start), err)

	return translateError(err)
}

// SaveTo writes the forest to a blob store under the given name.
func (idx *Index) SaveTo(ctx context.Context, bs blobstore.BlobStore, name string) error {
	start := time.Now()
	err := idx.saveTo(ctx, bs, name)

	idx.opts.logger.LogSave(ctx, name, time.Since(start), err)
	idx.opts.metricsCollector.RecordSave(time.Since(start), err)

	return translateError(err)
}

func (idx *Index) saveTo(ctx context.Context, bs blobstore.BlobStore, name string) error {
	w, err := bs.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := persistence.Write(ctx, idx.forest, w, func(o *persistence.Options) {
		o.Compression = idx.opts.compression
	}); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// Load reads a forest from path and couples it with the given store.
// The store must hold the same vectors the forest was built over. A nil
// or empty store is accepted for inspecting the forest, but queries
// against it fail with ErrEmptyStore.
func Load(ctx context.Context, path string, store *vectorstore.Store, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	start := time.Now()

	f, err := persistence.Load(ctx, path)

	opts.logger.LogLoad(ctx, path, time.Since(start), err)
	opts.metricsCollector.RecordLoad(time.Since(start), err)

	if err != nil {
		return nil, translateError(err)
	}

	return newLoadedIndex(f, store, opts)
}

// LoadFrom reads a forest from a blob store under the given name.
func LoadFrom(ctx context.Context, bs blobstore.BlobStore, name string, store *vectorstore.Store, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	start := time.Now()

	f, err := loadFrom(ctx, bs, name)

	opts.logger.LogLoad(ctx, name, time.Since(start), err)
	opts.metricsCollector.RecordLoad(time.Since(start), err)

	if err != nil {
		return nil, translateError(err)
	}

	return newLoadedIndex(f, store, opts)
}

func loadFrom(ctx context.Context, bs blobstore.BlobStore, name string) (*forest.Forest, error) {
	b, err := bs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	return persistence.Read(ctx, io.NewSectionReader(b, 0, b.Size()))
}

func newLoadedIndex(f *forest.Forest, store *vectorstore.Store, opts options) (*Index, error) {
	if store != nil && store.Size() > 0 && store.Dimension() != f.Dimension() {
		return nil, &ErrDimensionMismatch{
			Expected: f.Dimension(),
			Actual:   store.Dimension(),
		}
	}

	return &Index{
		store:  store,
		forest: f,
		opts:   opts,
	}, nil
}

// Stats summarizes the index shape.
type Stats struct {
	Dimension    int
	Items        int
	TreeCount    int
	LeafCapacity int
	Seed         uint64
}

// Stats returns a snapshot of the index shape.
func (idx *Index) Stats() Stats {
	items := 0
	if idx.store != nil {
		items = idx.store.Size()
	}

	return Stats{
		Dimension:    idx.forest.Dimension(),
		Items:        items,
		TreeCount:    idx.forest.TreeCount(),
		LeafCapacity: idx.forest.LeafCapacity(),
		Seed:         idx.forest.Seed(),
	}
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("annforest(dim=%d items=%d trees=%d leaf=%d seed=%d)",
		s.Dimension, s.Items, s.TreeCount, s.LeafCapacity, s.Seed)
}

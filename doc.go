// Package annforest provides an embedded approximate nearest neighbor
// index for static, high-dimensional vector sets.
//
// The index is a forest of randomized hyperplane-projection trees built
// once over a frozen vector store. Queries descend all trees through a
// shared priority frontier, collect candidate items, and re-rank them
// exactly under the configured distance metric. Builds are seeded and
// deterministic: the same vectors and seed always produce bit-identical
// forests, regardless of worker scheduling.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	store := vectorstore.NewWithDimension(128)
//	for _, v := range vectors {
//	    store.Append(v)
//	}
//
//	idx, err := annforest.Build(ctx, store,
//	    annforest.WithTreeCount(16),
//	    annforest.WithSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := idx.QueryByVector(ctx, query, 10)
//
// # Persistence
//
// A built forest round-trips through a checksummed binary file:
//
//	err = idx.Save(ctx, "glove.anf")
//	idx, err = annforest.Load(ctx, "glove.anf", store)
//
// SaveTo and LoadFrom ship index files through any blobstore.BlobStore,
// including the S3 and MinIO backends.
//
// # Key Properties
//
//   - Deterministic, parallel builds with cooperative cancellation
//   - Immutable index, safe for unsynchronized concurrent queries
//   - Tunable recall via tree count and search multiplier
//   - Euclidean, angular, and dot-product metrics
//   - Optional LZ4/zstd compression of persisted indexes
package annforest

// Package distance provides the vector distance metrics used by the forest.
//
// # Supported Metrics
//
//   - MetricEuclidean: true L2 distance (reported distances are comparable
//     to human expectations, e.g. 1.0 between unit-spaced points)
//   - MetricAngular: sqrt(2 - 2*cos(a,b)), the angular distance commonly
//     used for word embeddings
//   - MetricDot: negated inner product (larger dot product ranks closer)
//
// Metric values are stable and appear as single-byte identifiers in the
// persisted index header; never renumber them.
package distance

// Package persistence serializes forests to a compact binary format.
//
// A persisted index holds the forest structure only: split hyperplanes,
// partition links and leaf id lists, preceded by a fixed header recording
// the build configuration (dimension, metric, tree count, leaf capacity,
// seed). Vectors are NOT embedded; a matching vector store must be
// supplied again at load time for exact-distance re-ranking.
//
// # File layout
//
//	header   40 bytes, little-endian, CRC32-protected
//	trees    one block per tree: [rawSize u32][compSize u32][payload]
//	         compSize 0 means the payload is stored uncompressed
//	footer   CRC32 over all tree blocks
//
// Each tree payload is a self-delimiting pre-order stream:
//
//	tag byte 0 (internal): offset float32, normal float32[dim]
//	tag byte 1 (leaf):     count uint32, ids uint32[count]
//
// Save writes to a temporary file and renames it into place, so readers
// never observe a partially written index.
package persistence

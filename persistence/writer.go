package persistence

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/annforest/forest"
)

// Options configures how a forest is serialized.
type Options struct {
	// Compression selects the block codec applied to each tree stream.
	Compression Compression
}

// DefaultOptions holds the defaults used by Write and Save.
var DefaultOptions = Options{
	Compression: CompressionNone,
}

// Write serializes f to w in the binary index format documented in this
// package. Trees are written in forest order, each as one length-prefixed
// block; a CRC32 over all blocks follows as the file footer.
func Write(ctx context.Context, f *forest.Forest, w io.Writer, optFns ...func(o *Options)) error {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.Compression.Valid() {
		return fmt.Errorf("persistence: unknown compression codec %d", opts.Compression)
	}

	header := FileHeader{
		Magic:        MagicNumber,
		Version:      Version,
		Flags:        uint32(opts.Compression),
		Metric:       f.Metric(),
		Dimension:    uint32(f.Dimension()),
		TreeCount:    uint32(f.TreeCount()),
		LeafCapacity: uint32(f.LeafCapacity()),
		Seed:         f.Seed(),
	}
	if _, err := header.WriteTo(w); err != nil {
		return err
	}

	cw := newChecksumWriter(w)

	trees := f.Trees()
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := writeBlock(cw, encodeTree(&trees[i], f.Dimension()), opts.Compression); err != nil {
			return err
		}
	}

	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], cw.Sum())

	_, err := w.Write(footer[:])

	return err
}

// encodeTree flattens one tree into its pre-order byte stream. Nodes are
// appended to the arena in pre-order during the build, so arena order is
// already the stream order and no traversal is needed.
func encodeTree(t *forest.Tree, dimension int) []byte {
	buf := make([]byte, 0, estimateTreeSize(t, dimension))

	for i := range t.Nodes {
		node := &t.Nodes[i]

		if node.IsLeaf() {
			buf = append(buf, tagLeaf)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(node.Items)))
			for _, id := range node.Items {
				buf = binary.LittleEndian.AppendUint32(buf, id)
			}

			continue
		}

		buf = append(buf, tagInternal)
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(node.Offset))
		for _, v := range node.Normal {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	return buf
}

func estimateTreeSize(t *forest.Tree, dimension int) int {
	size := 0

	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			size += 1 + 4 + 4*len(t.Nodes[i].Items)
		} else {
			size += 1 + 4 + 4*dimension
		}
	}

	return size
}

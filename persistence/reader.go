package persistence

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/annforest/forest"
)

// Read deserializes a forest from the binary index format. The input is
// validated end to end: header checksum, tree stream structure and the
// trailing body checksum. Malformed input yields ErrCorrupted (or one of
// the more specific format errors), never a panic.
func Read(ctx context.Context, r io.Reader) (*forest.Forest, error) {
	var header FileHeader
	if _, err := header.ReadFrom(r); err != nil {
		return nil, err
	}

	codec := header.Compression()
	cr := newChecksumReader(r)

	trees := make([]forest.Tree, header.TreeCount)
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, err := readBlock(cr, codec)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}

		tree, err := decodeTree(payload, int(header.Dimension))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}

		trees[i] = tree
	}

	bodySum := cr.Sum()

	var footer [4]byte
	if _, err := io.ReadFull(r, footer[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated footer: %w", ErrCorrupted, err)
	}

	if expected := binary.LittleEndian.Uint32(footer[:]); bodySum != expected {
		return nil, fmt.Errorf("%w: body checksum mismatch: expected 0x%08x, got 0x%08x",
			ErrCorrupted, expected, bodySum)
	}

	return forest.Restore(int(header.Dimension), header.Metric,
		int(header.LeafCapacity), header.Seed, trees)
}

// treeDecoder holds the cursor state of one tree stream.
type treeDecoder struct {
	buf       []byte
	pos       int
	dimension int
	nodes     []forest.Node
}

// childSlot tracks an internal node waiting for its children. left
// flips once the first child is attached; the second child completes
// the node and pops the slot.
type childSlot struct {
	idx  int32
	left bool
}

// decodeTree walks the pre-order stream iteratively with an explicit
// stack of open internal nodes, so the nesting depth of the input only
// costs heap, never goroutine stack. Decoding nodes in stream order
// reproduces the arena layout the builder produced, making save/load
// round trips bit-exact.
func decodeTree(payload []byte, dimension int) (forest.Tree, error) {
	d := &treeDecoder{buf: payload, dimension: dimension}

	var open []childSlot
	for {
		idx, internal, err := d.decodeNode()
		if err != nil {
			return forest.Tree{}, err
		}

		if n := len(open); n > 0 {
			slot := &open[n-1]
			if !slot.left {
				d.nodes[slot.idx].Left = idx
				slot.left = true
			} else {
				d.nodes[slot.idx].Right = idx
				open = open[:n-1]
			}
		}

		if internal {
			open = append(open, childSlot{idx: idx})
		}

		if len(open) == 0 {
			break
		}
	}

	if d.pos != len(d.buf) {
		return forest.Tree{}, fmt.Errorf("%w: %d trailing bytes after tree stream",
			ErrCorrupted, len(d.buf)-d.pos)
	}

	return forest.Tree{Nodes: d.nodes}, nil
}

// decodeNode consumes one node record and returns its arena index and
// whether it still expects children.
func (d *treeDecoder) decodeNode() (int32, bool, error) {
	tag, err := d.readByte()
	if err != nil {
		return forest.NoChild, false, err
	}

	switch tag {
	case tagLeaf:
		count, err := d.readUint32()
		if err != nil {
			return forest.NoChild, false, err
		}

		if int(count) > (len(d.buf)-d.pos)/4 {
			return forest.NoChild, false, fmt.Errorf("%w: leaf item count %d exceeds remaining stream",
				ErrCorrupted, count)
		}

		items := make([]uint32, count)
		for i := range items {
			items[i], _ = d.readUint32()
		}

		idx := int32(len(d.nodes))
		d.nodes = append(d.nodes, forest.Node{
			Left:  forest.NoChild,
			Right: forest.NoChild,
			Items: items,
		})

		return idx, false, nil

	case tagInternal:
		offsetBits, err := d.readUint32()
		if err != nil {
			return forest.NoChild, false, err
		}

		if d.dimension > (len(d.buf)-d.pos)/4 {
			return forest.NoChild, false, fmt.Errorf("%w: truncated hyperplane normal", ErrCorrupted)
		}

		normal := make([]float32, d.dimension)
		for i := range normal {
			bits, _ := d.readUint32()
			normal[i] = math.Float32frombits(bits)
		}

		idx := int32(len(d.nodes))
		d.nodes = append(d.nodes, forest.Node{
			Normal: normal,
			Offset: math.Float32frombits(offsetBits),
		})

		return idx, true, nil

	default:
		return forest.NoChild, false, &ErrUnknownNodeTag{Tag: tag}
	}
}

func (d *treeDecoder) readByte() (uint8, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("%w: truncated tree stream", ErrCorrupted)
	}

	b := d.buf[d.pos]
	d.pos++

	return b, nil
}

func (d *treeDecoder) readUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, fmt.Errorf("%w: truncated tree stream", ErrCorrupted)
	}

	v := binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4

	return v, nil
}

package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/annforest/distance"
)

const (
	// MagicNumber identifies annforest index files (ASCII: "ANF0").
	MagicNumber = 0x414E4630

	// Version is the current file format version.
	Version uint32 = 1

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 40

	// Node tags of the pre-order tree stream.
	tagInternal uint8 = 0
	tagLeaf     uint8 = 1

	// Upper bounds used to reject implausible headers and blocks before
	// allocating for them.
	maxDimension = 1 << 20
	maxTreeCount = 1 << 20
	maxBlockSize = 1 << 30
)

var (
	// ErrInvalidMagic is returned when a file has an invalid magic number.
	ErrInvalidMagic = errors.New("persistence: invalid magic number")

	// ErrInvalidVersion is returned when a file has an unsupported version.
	ErrInvalidVersion = errors.New("persistence: unsupported format version")

	// ErrCorrupted is returned when a file is truncated or fails checksum
	// validation.
	ErrCorrupted = errors.New("persistence: corrupted index file")
)

// ErrUnknownNodeTag is returned when the tree stream contains an
// unrecognized node tag.
type ErrUnknownNodeTag struct {
	Tag uint8
}

func (e *ErrUnknownNodeTag) Error() string {
	return fmt.Sprintf("persistence: unknown node tag 0x%02x", e.Tag)
}

// FileHeader is the 40-byte header at the start of every index file.
//
// All multi-byte fields are little-endian. The trailing checksum covers
// the first 36 bytes.
type FileHeader struct {
	Magic        uint32
	Version      uint32
	Flags        uint32 // low byte holds the compression codec
	Metric       distance.Metric
	Dimension    uint32
	TreeCount    uint32
	LeafCapacity uint32
	Seed         uint64
	Checksum     uint32
}

// Compression extracts the compression codec from the header flags.
func (h *FileHeader) Compression() Compression {
	return Compression(h.Flags & 0xff)
}

// Validate checks magic, version, metric and codec.
func (h *FileHeader) Validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version > Version {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	if !h.Metric.Valid() {
		return fmt.Errorf("%w: unknown metric %d", ErrCorrupted, h.Metric)
	}
	if !h.Compression().Valid() {
		return fmt.Errorf("%w: unknown compression codec %d", ErrCorrupted, h.Compression())
	}
	if h.Dimension == 0 || h.Dimension > maxDimension {
		return fmt.Errorf("%w: implausible dimension %d", ErrCorrupted, h.Dimension)
	}
	if h.TreeCount == 0 || h.TreeCount > maxTreeCount {
		return fmt.Errorf("%w: implausible tree count %d", ErrCorrupted, h.TreeCount)
	}
	if h.LeafCapacity == 0 {
		return fmt.Errorf("%w: zero leaf capacity", ErrCorrupted)
	}
	return nil
}

// WriteTo writes the header to w.
func (h *FileHeader) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	buf[12] = uint8(h.Metric)
	// bytes 13..15 reserved
	binary.LittleEndian.PutUint32(buf[16:20], h.Dimension)
	binary.LittleEndian.PutUint32(buf[20:24], h.TreeCount)
	binary.LittleEndian.PutUint32(buf[24:28], h.LeafCapacity)
	binary.LittleEndian.PutUint64(buf[28:36], h.Seed)

	h.Checksum = crc32.ChecksumIEEE(buf[:36])
	binary.LittleEndian.PutUint32(buf[36:40], h.Checksum)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom reads and validates the header from r.
//
// Truncation and checksum mismatch are both reported as ErrCorrupted.
func (h *FileHeader) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return int64(n), fmt.Errorf("%w: truncated header: %w", ErrCorrupted, err)
	}

	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.Metric = distance.Metric(buf[12])
	h.Dimension = binary.LittleEndian.Uint32(buf[16:20])
	h.TreeCount = binary.LittleEndian.Uint32(buf[20:24])
	h.LeafCapacity = binary.LittleEndian.Uint32(buf[24:28])
	h.Seed = binary.LittleEndian.Uint64(buf[28:36])
	h.Checksum = binary.LittleEndian.Uint32(buf[36:40])

	if expected := crc32.ChecksumIEEE(buf[:36]); h.Checksum != expected {
		return int64(n), fmt.Errorf("%w: header checksum mismatch: expected 0x%08x, got 0x%08x",
			ErrCorrupted, expected, h.Checksum)
	}

	return int64(n), h.Validate()
}

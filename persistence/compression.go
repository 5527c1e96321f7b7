package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the block compression codec of an index file.
type Compression uint8

const (
	// CompressionNone stores tree blocks uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, modest ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd block compression (better ratio).
	CompressionZSTD Compression = 2
)

// Valid reports whether c names a supported codec.
func (c Compression) Valid() bool {
	return c <= CompressionZSTD
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// zstd encoder/decoder pools; both are safe for reuse across blocks.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlockSize))
	return dec
}

const blockHeaderSize = 8

// writeBlock writes one tree block: [rawSize u32][compSize u32][payload].
// compSize 0 marks an uncompressed payload, which is also the fallback
// when the codec fails to shrink the data below 90% of its raw size.
func writeBlock(w io.Writer, data []byte, codec Compression) error {
	var compressed []byte

	switch codec {
	case CompressionNone:
		// stored raw
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return err
		}
		if n > 0 {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return fmt.Errorf("persistence: unknown compression codec %d", codec)
	}

	if compressed != nil && float64(len(compressed)) > float64(len(data))*0.9 {
		compressed = nil
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(data)))
	if compressed == nil {
		binary.LittleEndian.PutUint32(hdr[4:8], 0)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		_, err := w.Write(data)
		return err
	}

	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(compressed)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(compressed)
	return err
}

// lz4MaxRatio is the highest expansion an LZ4 block can achieve; a
// claimed raw size beyond it cannot come from a valid block.
const lz4MaxRatio = 255

// readBlock reads one tree block written by writeBlock.
//
// The size fields come from untrusted input, so payload buffers grow as
// data actually arrives instead of being allocated from the claimed
// size up front.
func readBlock(r io.Reader, codec Compression) ([]byte, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated block header: %w", ErrCorrupted, err)
	}

	rawSize := binary.LittleEndian.Uint32(hdr[0:4])
	compSize := binary.LittleEndian.Uint32(hdr[4:8])

	if rawSize > maxBlockSize || compSize > maxBlockSize {
		return nil, fmt.Errorf("%w: implausible block size", ErrCorrupted)
	}

	if compSize == 0 {
		return readExact(r, int(rawSize))
	}

	compressed, err := readExact(r, int(compSize))
	if err != nil {
		return nil, err
	}

	switch codec {
	case CompressionLZ4:
		if int(rawSize) > lz4MaxRatio*len(compressed) {
			return nil, fmt.Errorf("%w: implausible lz4 expansion", ErrCorrupted)
		}
		data := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(compressed, data)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupted, err)
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: lz4 block size mismatch", ErrCorrupted)
		}
		return data, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		data, err := dec.DecodeAll(compressed, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupted, err)
		}
		if uint32(len(data)) != rawSize {
			return nil, fmt.Errorf("%w: zstd block size mismatch", ErrCorrupted)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: compressed block under codec %v", ErrCorrupted, codec)
	}
}

// readExact reads exactly n bytes, growing the buffer incrementally so
// a truncated input fails with only the received bytes allocated.
func readExact(r io.Reader, n int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated block: %w", ErrCorrupted, err)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: truncated block: expected %d bytes, got %d",
			ErrCorrupted, n, len(data))
	}
	return data, nil
}

package mapstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Format selects how a chunk is encoded on disk.
type Format int

const (
	// FormatBinary packs records as fixed-width little-endian fields,
	// zstd-compressed. Used for the large dense height-keyed series.
	FormatBinary Format = iota
	// FormatJSON stores a plain JSON object. Used for small sparse maps
	// (e.g. daily price closes, asset metadata) where human-readability
	// during debugging matters more than size.
	FormatJSON
)

func (f Format) extension() string {
	if f == FormatJSON {
		return "json"
	}
	return "bin"
}

// scalar is the set of value types a HeightMap/DateMap/BiMap may hold.
type scalar interface {
	~float32 | ~float64 | ~uint32 | ~uint64 | ~int32 | ~int64 | ~int
}

// encodeBinary writes a sorted key/value record stream: each record is an
// 8-byte little-endian key ordinal followed by the fixed-width value.
func encodeBinary[T scalar](keys []int64, values []T) ([]byte, error) {
	var buf bytes.Buffer
	for i, k := range keys {
		if err := binary.Write(&buf, binary.LittleEndian, k); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, values[i]); err != nil {
			return nil, err
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("new zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// decodeBinary reverses encodeBinary.
func decodeBinary[T scalar](data []byte) ([]int64, []T, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("new zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("zstd decode: %w", err)
	}

	var zero T
	recordSize := 8 + binary.Size(zero)
	if recordSize <= 0 || len(raw)%recordSize != 0 {
		return nil, nil, fmt.Errorf("corrupt chunk: length %d not a multiple of record size %d", len(raw), recordSize)
	}

	n := len(raw) / recordSize
	keys := make([]int64, n)
	values := make([]T, n)
	r := bytes.NewReader(raw)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &keys[i]); err != nil {
			return nil, nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &values[i]); err != nil {
			return nil, nil, err
		}
	}
	return keys, values, nil
}

func encodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// atomicWriteFile writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partially-written chunk.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// readFile reads a chunk, returning (nil, nil) if it does not exist yet.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

var _ io.Writer = (*bytes.Buffer)(nil)

// Package checkpoint implements the eager-mode weight-checkpoint runtime.
// Artifacts are safetensors files: an 8-byte little-endian header length,
// a JSON header describing each tensor, then raw tensor bytes.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"visiond/pkg/tensor"
)

// Available reports whether the checkpoint runtime can be used in this
// process. The reader is pure Go, so it is always compiled in; the check
// exists because the registry treats runtime availability as an explicit
// part of every adapter's contract.
func Available() bool { return true }

// maxHeaderSize bounds the JSON header to catch corrupt length prefixes.
const maxHeaderSize = 16 << 20

type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

type header struct {
	Metadata map[string]string
	Tensors  map[string]tensorInfo
}

func (h *header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Tensors = make(map[string]tensorInfo, len(raw))
	for key, value := range raw {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &h.Metadata); err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// Reader reads tensors out of a safetensors file.
type Reader struct {
	file       *os.File
	header     header
	dataOffset int64
}

// Open parses the header of a safetensors file and prepares tensor reads.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize == 0 || headerSize > maxHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("implausible header size %d", headerSize)
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	var h header
	if err := json.Unmarshal(buf, &h); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("parse header: %w", err)
	}
	return &Reader{file: file, header: h, dataOffset: int64(8 + headerSize)}, nil
}

// Metadata returns the free-form __metadata__ block, which may be nil.
func (r *Reader) Metadata() map[string]string { return r.header.Metadata }

// Has reports whether the file contains a tensor with the given name.
func (r *Reader) Has(name string) bool {
	_, ok := r.header.Tensors[name]
	return ok
}

// Tensor reads the named tensor. Only F32 payloads are supported.
func (r *Reader) Tensor(name string) (*tensor.Tensor, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %q not present in checkpoint", name)
	}
	if info.DType != "F32" {
		return nil, fmt.Errorf("tensor %q has unsupported dtype %s", name, info.DType)
	}
	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	n := shape.NumElements()
	byteLen := info.DataOffsets[1] - info.DataOffsets[0]
	if byteLen != int64(n*4) {
		return nil, fmt.Errorf("tensor %q: %d bytes for %d elements", name, byteLen, n)
	}
	raw := make([]byte, byteLen)
	if _, err := r.file.ReadAt(raw, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("read tensor %q: %w", name, err)
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return tensor.FromSlice(data, shape)
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.file.Close() }

// Save writes tensors (plus optional metadata) as a safetensors file.
// Used by authoring tools and tests; the serving path only reads.
func Save(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	entries := make(map[string]any, len(tensors)+1)
	if len(metadata) > 0 {
		entries["__metadata__"] = metadata
	}
	// Deterministic layout keyed by insertion below; offsets are explicit so
	// map iteration order does not matter.
	var offset int64
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	for _, name := range names {
		t := tensors[name]
		size := int64(t.NumElements() * 4)
		entries[name] = tensorInfo{
			DType:       "F32",
			Shape:       []int(t.Shape()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}
	headerJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return err
	}
	if _, err := f.Write(headerJSON); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, name := range names {
		for _, v := range tensors[name].Data() {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := f.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

package minirag

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

const (
	// VectorsFile holds the row-major float32 vector matrix.
	VectorsFile = "vectors.bin"
	// PayloadsFile holds the payload strings, optionally compressed.
	PayloadsFile = "payloads.bin"

	vectorsMagic  = 0x54414c46 // "FLAT"
	payloadsMagic = 0x59415046 // "FPAY"
	formatVersion = 1
)

// vectorsHeader is the 32-byte header at the start of VectorsFile.
type vectorsHeader struct {
	Magic     uint32
	Version   uint32
	Count     uint64 // Number of rows
	Dimension uint32 // Components per row
	Checksum  uint32 // CRC32 (IEEE) of the row data
	Reserved  [8]byte
}

// payloadsHeader precedes the (possibly compressed) payload block.
type payloadsHeader struct {
	Magic     uint32
	Version   uint32
	Codec     uint8
	Padding   [3]byte
	Count     uint64 // Number of payload strings
	RawSize   uint64 // Length of the uncompressed block
	BlockSize uint64 // Length of the stored block
	Checksum  uint32 // CRC32 (IEEE) of the uncompressed block
	Reserved  uint32
}

var (
	vectorsHeaderSize  = binary.Size(vectorsHeader{})
	payloadsHeaderSize = binary.Size(payloadsHeader{})
)

// Save writes the index into dir, creating it if needed.
// Each file is replaced atomically.
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersistence, dir, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, PayloadsFile), idx.writePayloads); err != nil {
		return fmt.Errorf("%w: writing payloads: %w", ErrPersistence, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, VectorsFile), idx.writeVectors); err != nil {
		return fmt.Errorf("%w: writing vectors: %w", ErrPersistence, err)
	}
	return nil
}

func (idx *Index) writeVectors(w io.Writer) error {
	data := make([]byte, 0, len(idx.vectors)*4)
	for _, v := range idx.vectors {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	hdr := vectorsHeader{
		Magic:     vectorsMagic,
		Version:   formatVersion,
		Count:     uint64(idx.Len()),
		Dimension: uint32(idx.dim),
		Checksum:  crc32.ChecksumIEEE(data),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func (idx *Index) writePayloads(w io.Writer) error {
	var raw []byte
	for _, p := range idx.payloads {
		raw = binary.AppendUvarint(raw, uint64(len(p)))
		raw = append(raw, p...)
	}
	block, codec, err := compress(raw, idx.opts.compression)
	if err != nil {
		return err
	}
	hdr := payloadsHeader{
		Magic:     payloadsMagic,
		Version:   formatVersion,
		Codec:     uint8(codec),
		Count:     uint64(len(idx.payloads)),
		RawSize:   uint64(len(raw)),
		BlockSize: uint64(len(block)),
		Checksum:  crc32.ChecksumIEEE(raw),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

// Load replaces the index contents with the ones saved in dir.
//
// A saved dimension different from the index dimension fails with
// ErrDimensionMismatch; a missing or corrupt vector file fails with
// ErrPersistence. A missing payload file restores empty payloads.
// On any error the index is left unchanged.
func (idx *Index) Load(dir string) error {
	vectors, count, err := readVectors(filepath.Join(dir, VectorsFile), idx.dim)
	if err != nil {
		return err
	}
	payloads, err := readPayloads(filepath.Join(dir, PayloadsFile), count)
	if err != nil {
		return err
	}
	idx.vectors = vectors
	idx.payloads = payloads
	return nil
}

func readVectors(path string, dim int) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if info.Size() < int64(vectorsHeaderSize) {
		return nil, 0, fmt.Errorf("%w: %s: file too small (%d bytes)", ErrPersistence, path, info.Size())
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: mapping %s: %w", ErrPersistence, path, err)
	}
	defer m.Unmap()

	var hdr vectorsHeader
	if err := binary.Read(bytes.NewReader(m[:vectorsHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, 0, fmt.Errorf("%w: reading header: %w", ErrPersistence, err)
	}
	if hdr.Magic != vectorsMagic {
		return nil, 0, fmt.Errorf("%w: %s: invalid magic 0x%08x", ErrPersistence, path, hdr.Magic)
	}
	if hdr.Version != formatVersion {
		return nil, 0, fmt.Errorf("%w: %s: unsupported version %d", ErrPersistence, path, hdr.Version)
	}
	if int(hdr.Dimension) != dim {
		return nil, 0, &DimensionMismatchError{Expected: dim, Actual: int(hdr.Dimension), What: "persisted index"}
	}

	data := m[vectorsHeaderSize:]
	if hdr.Count > uint64(len(data)) || hdr.Count*uint64(dim)*4 != uint64(len(data)) {
		return nil, 0, fmt.Errorf("%w: %s: %d rows of dimension %d do not match %d data bytes",
			ErrPersistence, path, hdr.Count, dim, len(data))
	}
	if sum := crc32.ChecksumIEEE(data); sum != hdr.Checksum {
		return nil, 0, fmt.Errorf("%w: %s: checksum mismatch: expected 0x%08x, got 0x%08x",
			ErrPersistence, path, hdr.Checksum, sum)
	}

	vectors := make([]float32, len(data)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vectors, int(hdr.Count), nil
}

func readPayloads(path string, count int) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make([]string, count), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(raw) < payloadsHeaderSize {
		return nil, fmt.Errorf("%w: %s: file too small (%d bytes)", ErrPersistence, path, len(raw))
	}

	var hdr payloadsHeader
	if err := binary.Read(bytes.NewReader(raw[:payloadsHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrPersistence, err)
	}
	if hdr.Magic != payloadsMagic {
		return nil, fmt.Errorf("%w: %s: invalid magic 0x%08x", ErrPersistence, path, hdr.Magic)
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrPersistence, path, hdr.Version)
	}
	if hdr.Count != uint64(count) {
		return nil, fmt.Errorf("%w: %s: %d payloads for %d vectors", ErrPersistence, path, hdr.Count, count)
	}
	block := raw[payloadsHeaderSize:]
	if hdr.BlockSize != uint64(len(block)) || hdr.RawSize > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s: truncated payload block", ErrPersistence, path)
	}

	data, err := decompress(block, Compression(hdr.Codec), int(hdr.RawSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPersistence, path, err)
	}
	if sum := crc32.ChecksumIEEE(data); sum != hdr.Checksum {
		return nil, fmt.Errorf("%w: %s: checksum mismatch: expected 0x%08x, got 0x%08x",
			ErrPersistence, path, hdr.Checksum, sum)
	}

	payloads := make([]string, 0, count)
	for len(data) > 0 {
		n, w := binary.Uvarint(data)
		if w <= 0 || n > uint64(len(data)-w) {
			return nil, fmt.Errorf("%w: %s: malformed payload entry %d", ErrPersistence, path, len(payloads))
		}
		data = data[w:]
		payloads = append(payloads, string(data[:n]))
		data = data[n:]
	}
	if len(payloads) != count {
		return nil, fmt.Errorf("%w: %s: decoded %d payloads, want %d", ErrPersistence, path, len(payloads), count)
	}
	return payloads, nil
}

// writeFileAtomic writes through a temp file in the same directory and renames
// it over filename once fully synced.
func writeFileAtomic(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	ihash "github.com/hupe1980/gosmo/internal/hash"
	"github.com/hupe1980/gosmo/model"
	"github.com/hupe1980/gosmo/table"
)

var byteOrder = binary.LittleEndian

// Write encodes m as a snapshot.
func Write(w io.Writer, m *model.Model, c Compression) error {
	if err := m.Validate(); err != nil {
		return err
	}

	body, nnz, err := encodeBody(m)
	if err != nil {
		return err
	}
	block, err := compressBlock(body, c)
	if err != nil {
		return err
	}

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Layout:      uint8(m.Layout),
		Compression: uint8(c),
		NumSV:       uint64(m.NumSV()),
		Features:    uint32(m.Features),
		NNZ:         uint64(nnz),
		PayloadSize: uint64(len(block)),
		Checksum:    ihash.CRC32C(block),
	}
	if err := binary.Write(w, byteOrder, &header); err != nil {
		return err
	}
	_, err = w.Write(block)
	return err
}

// Read decodes a snapshot written by Write.
func Read(r io.Reader) (*model.Model, error) {
	var header FileHeader
	if err := binary.Read(r, byteOrder, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}

	want, err := bodySize(&header)
	if err != nil {
		return nil, err
	}
	if header.PayloadSize < blockHeaderSize || header.PayloadSize > uint64(want)+blockHeaderSize {
		return nil, fmt.Errorf("%w: payload size %d", ErrCorrupt, header.PayloadSize)
	}

	block := make([]byte, header.PayloadSize)
	cr := NewChecksumReader(r)
	if _, err := io.ReadFull(cr, block); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := cr.Verify(header.Checksum); err != nil {
		return nil, err
	}

	body, err := decompressBlock(block, Compression(header.Compression), want)
	if err != nil {
		return nil, err
	}

	m, err := decodeBody(&header, body)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return m, nil
}

// bodySize returns the decoded body length the header implies.
func bodySize(h *FileHeader) (int, error) {
	const maxEntries = 1 << 40
	n, f, nnz := h.NumSV, uint64(h.Features), h.NNZ
	if f == 0 {
		return 0, fmt.Errorf("%w: zero feature columns", ErrCorrupt)
	}
	if n > maxEntries || nnz > maxEntries || n*f > maxEntries {
		return 0, fmt.Errorf("%w: header dimensions %dx%d nnz=%d", ErrCorrupt, n, f, nnz)
	}

	size := 8 + 16*n // bias, coefficients, indices
	switch table.Layout(h.Layout) {
	case table.LayoutDense:
		size += 8 * n * f
	case table.LayoutCSR:
		size += 8*(n+1) + 8*nnz + 8*nnz
	default:
		return 0, fmt.Errorf("%w: layout %d", ErrCorrupt, h.Layout)
	}
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("%w: body of %d bytes", ErrCorrupt, size)
	}
	return int(size), nil
}

func encodeBody(m *model.Model) ([]byte, int, error) {
	var buf bytes.Buffer

	_ = binary.Write(&buf, byteOrder, m.Bias)
	_ = binary.Write(&buf, byteOrder, m.Coefficients)
	_ = binary.Write(&buf, byteOrder, toUint64(m.Indices))

	sv := m.SupportVectors
	switch m.Layout {
	case table.LayoutDense:
		for r := range sv.Rows() {
			_ = binary.Write(&buf, byteOrder, sv.Row(r).Dense)
		}
		return buf.Bytes(), 0, nil
	case table.LayoutCSR:
		values, colIdx, rowPtr := sv.CSR()
		_ = binary.Write(&buf, byteOrder, toUint64(rowPtr))
		_ = binary.Write(&buf, byteOrder, toUint64(colIdx))
		_ = binary.Write(&buf, byteOrder, values)
		return buf.Bytes(), len(values), nil
	default:
		return nil, 0, fmt.Errorf("persistence: unknown layout %s", m.Layout)
	}
}

func decodeBody(h *FileHeader, body []byte) (*model.Model, error) {
	n, f := int(h.NumSV), int(h.Features)
	r := bytes.NewReader(body)

	m := &model.Model{
		Layout:       table.Layout(h.Layout),
		Features:     f,
		Coefficients: make([]float64, n),
	}
	indices := make([]uint64, n)
	if err := readAll(r, &m.Bias, m.Coefficients, indices); err != nil {
		return nil, err
	}
	m.Indices = toInt(indices)

	switch m.Layout {
	case table.LayoutDense:
		if n == 0 {
			m.SupportVectors = table.NewDenseBlock(nil, f)
			break
		}
		values := make([]float64, n*f)
		if err := readAll(r, values); err != nil {
			return nil, err
		}
		m.SupportVectors = table.NewDenseBlock(mat.NewDense(n, f, values), f)
	case table.LayoutCSR:
		nnz := int(h.NNZ)
		rowPtr := make([]uint64, n+1)
		colIdx := make([]uint64, nnz)
		values := make([]float64, nnz)
		if err := readAll(r, rowPtr, colIdx, values); err != nil {
			return nil, err
		}
		blk, err := table.NewCSRBlock(n, f, values, toInt(colIdx), toInt(rowPtr))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		m.SupportVectors = blk
	}
	return m, nil
}

func readAll(r io.Reader, dst ...any) error {
	for _, d := range dst {
		if err := binary.Read(r, byteOrder, d); err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	return nil
}

func toUint64(s []int) []uint64 {
	out := make([]uint64, len(s))
	for i, v := range s {
		out[i] = uint64(v)
	}
	return out
}

func toInt(s []uint64) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}

// SaveFile writes m to filename atomically.
func SaveFile(filename string, m *model.Model, c Compression) error {
	return SaveToFile(filename, func(w io.Writer) error {
		return Write(w, m, c)
	})
}

// LoadFile reads a model written by SaveFile.
func LoadFile(filename string) (*model.Model, error) {
	var m *model.Model
	err := LoadFromFile(filename, func(r io.Reader) error {
		var err error
		m, err = Read(r)
		return err
	})
	return m, err
}

// SaveToFile is a helper to save data to a file.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
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

	_ = tmp.Chmod(0644)

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

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile is a helper to load data from a file.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}

package persistence

import "errors"

const (
	// MagicNumber identifies gosmo model files (ASCII: "SMO1").
	MagicNumber = 0x534D4F31
	// Version is the current file format version.
	Version = 0x00010000
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorrupt        = errors.New("corrupt model snapshot")
)

// FileHeader is the 64-byte header at the start of every model file.
type FileHeader struct {
	Magic       uint32 // 0x534D4F31 ("SMO1")
	Version     uint32 // File format version
	Layout      uint8  // table.Layout of the support vectors
	Compression uint8  // Compression of the payload block
	Padding1    [2]byte
	NumSV       uint64 // Number of support vectors
	Features    uint32 // Feature columns
	Padding2    [4]byte
	NNZ         uint64 // Stored entries of a CSR model, 0 for dense
	PayloadSize uint64 // Bytes of the payload block including its header
	Checksum    uint32 // CRC32C of the payload block
	Reserved    [16]byte
}

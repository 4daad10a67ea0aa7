// Package persistence writes and reads trained models as binary snapshots.
//
// A snapshot is a fixed-size little-endian FileHeader followed by one
// payload block. The block is optionally compressed with LZ4 or ZSTD and is
// protected by a CRC32-Castagnoli checksum stored in the header:
//
//	FileHeader | UncompressedSize uint32 | StoredSize uint32 | data
//
// StoredSize 0 means the data is stored uncompressed. The decoded body holds
// the bias, the coefficients, the original indices and the support vectors in
// the model's layout (row-major values for dense, row offsets, column indices
// and values for CSR).
package persistence

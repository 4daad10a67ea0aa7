// Package hash provides the CRC32-Castagnoli checksum used by model
// snapshots. Go's crc32 package uses SSE4.2 or the ARM CRC extension when
// available.
package hash

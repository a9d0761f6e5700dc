// Package hash computes the CRC32-Castagnoli checksums attached to blob
// uploads. crc32 uses the SSE4.2 and ARM64 CRC instructions when present.
package hash

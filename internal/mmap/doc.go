// Package mmap maps immutable bitmap blobs into memory for zero-copy reads.
//
// Mappings are read-only and shared. Bytes returns the mapped region, valid
// until Close. On platforms without mmap support, Open reads the whole file
// into memory instead so callers see the same API.
package mmap

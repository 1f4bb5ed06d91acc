// Package mmap reads blob files through read-only memory mappings.
//
// LocalStore loads every leaf sketch and node filter with ReadFile, which maps
// the file, hints sequential access and copies the contents onto the heap:
//
//	data, err := mmap.ReadFile(".sbt.genomes/internal.0")
//
// Open exposes the mapping itself for callers that can release it
// explicitly. Unix systems use mmap(2) and madvise(2); Windows uses
// MapViewOfFile without access hints.
package mmap

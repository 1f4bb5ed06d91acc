// Package hash provides the CRC32-Castagnoli checksums used for node filter
// blobs and object store uploads.
//
// Filters are written as sealed records, a body followed by a 4-byte
// little-endian CRC32C trailer:
//
//	blob := hash.Seal(body)
//	body, err := hash.Open(blob) // ErrChecksum on mismatch
//
// S3 and MinIO take the checksum big-endian and base64 encoded; see
// CRC32CBase64.
package hash

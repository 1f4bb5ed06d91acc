package hash

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// TrailerSize is the number of bytes Seal appends to a record.
const TrailerSize = 4

// ErrChecksum is returned by Open when a record's trailer does not match its body.
var ErrChecksum = errors.New("hash: checksum mismatch")

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// CRC32CBase64 returns the big-endian CRC32C of data, base64 encoded, as
// object stores expect it in checksum headers.
func CRC32CBase64(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

// Seal appends the little-endian CRC32C of record to record.
func Seal(record []byte) []byte {
	return binary.LittleEndian.AppendUint32(record, CRC32C(record))
}

// Open verifies a record produced by Seal and returns its body.
func Open(sealed []byte) ([]byte, error) {
	if len(sealed) < TrailerSize {
		return nil, ErrChecksum
	}
	body := sealed[:len(sealed)-TrailerSize]
	if CRC32C(body) != binary.LittleEndian.Uint32(sealed[len(body):]) {
		return nil, ErrChecksum
	}
	return body, nil
}

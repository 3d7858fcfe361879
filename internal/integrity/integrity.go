// Package integrity checks the resident monitor image against the CRC-32
// that the build-time signing step appends immediately after the image.
// The check is advisory: a mismatch is a warning, never a stop.
package integrity

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// SealSize is the number of trailing bytes holding the expected checksum.
const SealSize = 4

// Result is the outcome of one verification.
type Result struct {
	Expected uint32
	Computed uint32
	Length   uint32
}

// OK reports whether the image matched its seal.
func (r Result) OK() bool { return r.Expected == r.Computed }

// Verify treats the last four bytes of image as the little-endian expected
// CRC-32 of everything before them.
func Verify(image []byte) (Result, error) {
	if len(image) <= SealSize {
		return Result{}, fmt.Errorf("integrity: image of %d bytes has no room for a seal", len(image))
	}
	body := image[:len(image)-SealSize]
	return Result{
		Expected: binary.LittleEndian.Uint32(image[len(body):]),
		Computed: crc32.ChecksumIEEE(body),
		Length:   uint32(len(body)),
	}, nil
}

// Seal appends the CRC-32 of image, producing the layout Verify expects.
// This mirrors what the external build tool does to the flat binary.
func Seal(image []byte) []byte {
	out := make([]byte, len(image)+SealSize)
	copy(out, image)
	binary.LittleEndian.PutUint32(out[len(image):], crc32.ChecksumIEEE(image))
	return out
}

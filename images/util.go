package images

import (
	"crypto/md5"
	"fmt"
)

// ComputeChecksum generates a deterministic checksum over a pixel buffer. It is
// used to verify that a model or mask is byte-for-byte unchanged.
//
// Arguments:
// - pix: The samples to hash.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty" for an empty buffer.
//
// Example:
//
// ```go
//
//	before := ComputeChecksum(model.Pix)
//	// ... process a frame outside the sampling cadence ...
//	unchanged := before == ComputeChecksum(model.Pix)
//
// ```
func ComputeChecksum(pix []uint8) string {
	if len(pix) == 0 {
		return "empty"
	}

	hash := md5.New()
	hash.Write(pix)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

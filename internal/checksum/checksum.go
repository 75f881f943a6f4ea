// Package checksum computes the payload hashes stored alongside notes and resources.
package checksum

import (
	"bytes"
	"crypto/md5" //nolint:gosec // the remote service identifies payloads by MD5
	"encoding/hex"
)

// Sum returns the raw MD5 digest of data.
func Sum(data []byte) []byte {
	h := md5.Sum(data) //nolint:gosec
	return h[:]
}

// Hex returns the hex-encoded MD5 digest of data.
func Hex(data []byte) string {
	return hex.EncodeToString(Sum(data))
}

// Matches reports whether hash is the MD5 digest of data.
func Matches(data, hash []byte) bool {
	return bytes.Equal(Sum(data), hash)
}

package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
)

// BlobSuffix is appended to a content hash to form the blob reference of an entry.
const BlobSuffix = ".sn"

// HashLen is the length of a hex encoded content hash.
const HashLen = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// BlobRef derives the blob reference stored in an index entry from its content hash.
func BlobRef(hash string) string {
	return hash + BlobSuffix
}

// IsValidHash reports whether s looks like a value produced by Hash.
func IsValidHash(s string) bool {
	if len(s) != HashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

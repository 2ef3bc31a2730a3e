package core

// fingerprint.go implements content addressing for ledger records. Two
// rows with identical domain fields always collapse to the same
// fingerprint, which is the primary key of the persisted row and the
// dedup mechanism across uploads.

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters kept from the hash.
const FingerprintLength = 16

// Fingerprint computes the content hash of a record: SHA-256 over its
// canonical name=value field pairs in declared order, truncated for
// storage compactness. Server-assigned metadata never participates.
func Fingerprint(r Record) string {
	h := sha256.New()
	for _, f := range r.Fields() {
		h.Write([]byte(f.Name))
		h.Write([]byte{'='})
		h.Write([]byte(f.Value))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLength]
}

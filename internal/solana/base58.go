package solana

import "github.com/mr-tron/base58"

// Base58 encodes raw bytes as a base58 string. Addresses, signatures, and
// opaque byte blobs all cross the event boundary in this form.
func Base58(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base58.Encode(b)
}

// DecodeBase58 decodes a base58 string back to raw bytes.
func DecodeBase58(s string) ([]byte, error) {
	return base58.Decode(s)
}

// MustDecodeBase58 decodes a base58 string and panics on failure. Reserved
// for process-lifetime constants (program addresses, mint constants).
func MustDecodeBase58(s string) []byte {
	b, err := base58.Decode(s)
	if err != nil {
		panic("bad base58 constant: " + s)
	}
	return b
}

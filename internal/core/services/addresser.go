package services

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// addressSize is the digest length in bytes (160 bits).
const addressSize = 20

// AddressOf returns the content address of a source URL: the unkeyed
// BLAKE2b-160 digest of its bytes, as 40 lowercase hex characters.
// It is used both as the image filename and as the catalog join key.
func AddressOf(url string) string {
	h, err := blake2b.New(addressSize, nil)
	if err != nil {
		// Only reachable with an invalid size or key.
		panic(err)
	}
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

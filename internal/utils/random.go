package utils

import (
	"crypto/rand"
	"math/big"
)

const hashAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandString returns a random alphanumeric string of length n.
func RandString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(hashAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		b[i] = hashAlphabet[idx.Int64()]
	}
	return string(b)
}

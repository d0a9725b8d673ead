package application

import (
	"crypto/rand"
	"fmt"
	"io"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomAlphanumeric returns n characters drawn uniformly from [A-Za-z0-9]
// using crypto/rand. Bytes at or above the largest multiple of the alphabet
// size are discarded so every character is equally likely.
func RandomAlphanumeric(n int) (string, error) {
	return randomAlphanumericFrom(rand.Reader, n)
}

func randomAlphanumericFrom(src io.Reader, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	const limit = 256 - 256%len(alphanumeric)

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// TokenGenerator returns a generator of fixed-length alphanumeric tokens.
func TokenGenerator(length int) func() (string, error) {
	return func() (string, error) {
		return RandomAlphanumeric(length)
	}
}

package usecase

import (
	"crypto/rand"
	"io"
)

// linkCodeAlphabet avoids ambiguous characters like O/0 and I/1.
// Its length divides 256, so byte-modulo sampling stays uniform.
const linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const linkCodeLength = 6

// generateLinkCode creates a short, random, human-typeable linking code.
func generateLinkCode() (string, error) {
	buffer := make([]byte, linkCodeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = linkCodeAlphabet[int(buffer[i])%len(linkCodeAlphabet)]
	}
	return string(buffer), nil
}

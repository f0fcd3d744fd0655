package usecase

import (
	"crypto/rand"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// generateCode returns length uniformly random decimal digits.
func generateCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const orderNumberDigits = 6

var orderNumberSpace = big.NewInt(1_000_000)

// NewOrderNumber returns six random decimal digits, zero padded.
func NewOrderNumber() (string, error) {
	n, err := rand.Int(rand.Reader, orderNumberSpace)
	if err != nil {
		return "", fmt.Errorf("order number: %w", err)
	}
	return fmt.Sprintf("%0*d", orderNumberDigits, n.Int64()), nil
}

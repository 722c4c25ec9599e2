package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Intn returns a uniform random int in [0, n) from crypto/rand.
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// Sample draws n distinct elements uniformly without replacement. It returns
// every element, in random order, when n >= len(items). items is not modified.
func Sample[T any](items []T, n int) ([]T, error) {
	if n <= 0 || len(items) == 0 {
		return nil, nil
	}
	pool := append([]T(nil), items...)
	if n > len(pool) {
		n = len(pool)
	}
	// Partial Fisher-Yates: only the first n positions are settled.
	for i := 0; i < n; i++ {
		j, err := Intn(len(pool) - i)
		if err != nil {
			return nil, err
		}
		pool[i], pool[i+j] = pool[i+j], pool[i]
	}
	return pool[:n], nil
}

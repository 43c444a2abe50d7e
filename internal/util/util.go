package util

import (
	"math/rand"
	"time"
)

// RandomRange returns a random integer between min and max
func RandomRange(min, max int) int {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return r.Intn(max-min) + min
}

// Pages returns how many pages of size n are needed for total items
func Pages(total int, n int) int {
	if n <= 0 {
		return 0
	}
	return (total + n - 1) / n
}

package kvbench

import (
	"math/rand"
)

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// RandomBytes returns length printable bytes drawn from random.
func RandomBytes(random *rand.Rand, length int64) Binary {
	buf := make(Binary, length)
	for i := int64(0); i < length; i++ {
		buf[i] = letters[random.Intn(len(letters))]
	}
	return buf
}

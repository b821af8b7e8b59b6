package utils

import (
	"math/rand"
	"regexp"
	"sync"
	"time"
)

var (
	src     = rand.NewSource(time.Now().UnixNano())
	srcMu   sync.Mutex
	codeRgx = regexp.MustCompile("^[a-zA-Z0-9]+$")
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// Returns a random alphanumeric string of the specified length
func RandString(length int) string {
	srcMu.Lock()
	defer srcMu.Unlock()

	b := make([]byte, length)
	for i, cache, remain := length-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return string(b)
}

// IsCodeValid reports whether code looks like a room code of the given length
func IsCodeValid(code string, length int) bool {
	return len(code) == length && codeRgx.MatchString(code)
}

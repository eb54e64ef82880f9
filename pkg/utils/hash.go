package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// CacheKey builds a stable cache key out of the given parts. Parts are
// joined with a separator before hashing so ("ab","c") and ("a","bc")
// never collide.
func CacheKey(parts ...string) string {
	return HashString(strings.Join(parts, "|"))
}

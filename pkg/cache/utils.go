package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// maxKeyLen caps key growth; longer keys collapse to prefix:hash.
const maxKeyLen = 128

// GenerateKeyWithParams builds a colon-separated cache key from a prefix
// and its query parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	if len(key) > maxKeyLen {
		return prefix + ":" + HashKey(key)
	}
	return key
}

// HashKey generates MD5 hash of a key.
func HashKey(key string) string {
	hasher := md5.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}

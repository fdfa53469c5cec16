package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL. The
// study runner and the API handlers share it for serialized snapshots,
// so both the in-process and Redis implementations stay byte-oriented.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}

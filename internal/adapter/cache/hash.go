package cache

import (
	"strconv"

	"github.com/minio/highwayhash"
)

var key = []byte("chatpdf-highwayhash-key-32-bytes")

// Hash returns the 64 bit HighwayHash of data.
func Hash(data []byte) uint64 {
	h, err := highwayhash.New64(key)
	if err != nil {
		// only fails for a key that is not 32 bytes long
		panic(err)
	}
	_, _ = h.Write(data)
	return h.Sum64()
}

// HashHex returns Hash of the concatenated parts as a fixed width hex string.
// Parts are separated by a zero byte so ("ab","c") and ("a","bc") differ.
func HashHex(parts ...string) string {
	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, p...)
	}
	s := strconv.FormatUint(Hash(buf), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

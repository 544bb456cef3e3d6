package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.etcd.io/bbolt"
)

// GetEmbeddings returns the stored vectors for keys. Corrupted entries are
// treated as missing.
func (s *BoltStore) GetEmbeddings(keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for _, k := range keys {
			data := b.Get([]byte(k))
			if data == nil {
				continue
			}
			if v, ok := decodeVector(data); ok {
				out[k] = v
			}
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) PutEmbeddings(vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for k, v := range vectors {
			if err := b.Put([]byte(k), encodeVector(v)); err != nil {
				return fmt.Errorf("put embedding %s: %w", k, err)
			}
		}
		return nil
	})
}

// CountEmbeddings returns the number of stored vectors.
func (s *BoltStore) CountEmbeddings() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// encodeVector writes little endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, true
}

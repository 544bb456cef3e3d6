package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"chatpdf/internal/domain"
)

var (
	bucketDocs       = []byte("docs")
	bucketDocOrder   = []byte("doc_order")
	bucketHistory    = []byte("history")
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// BoltStore keeps the document registry, chat history and computed
// embeddings in a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketDocOrder, bucketHistory, bucketEmbeddings, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// PutDocument inserts or replaces a document. A new id is appended to the
// upload order; replacing keeps its position.
func (s *BoltStore) PutDocument(doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		if docs.Get([]byte(doc.ID)) == nil {
			order := tx.Bucket(bucketDocOrder)
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			if err := order.Put(seqKey(seq), []byte(doc.ID)); err != nil {
				return err
			}
		}
		return docs.Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		return tx.Bucket(bucketDocOrder).ForEach(func(_, id []byte) error {
			data := b.Get(id)
			if data == nil {
				return nil
			}
			var doc domain.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) DeleteDocument(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		order := tx.Bucket(bucketDocOrder)
		c := order.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if string(v) == id {
				if err := c.Delete(); err != nil {
					return err
				}
				break
			}
		}
		if err := tx.Bucket(bucketHistory).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

func (s *BoltStore) LoadHistory(_ context.Context, docID string) ([]domain.Turn, error) {
	var turns []domain.Turn
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get([]byte(docID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &turns)
	})
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", docID, err)
	}
	return turns, nil
}

func (s *BoltStore) SaveHistory(_ context.Context, docID string, turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(docID), data)
	})
}

func (s *BoltStore) DeleteHistory(_ context.Context, docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Delete([]byte(docID))
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.etcd.io/bbolt"

	"cdesearch/internal/domain"
)

var (
	bucketRecords    = []byte("records")
	bucketEmbeddings = []byte("embeddings")
)

// BoltStore persists corpus records and their raw embedding vectors.
// Keys are big-endian int64 ids, so every iteration walks the corpus in
// ascending id order regardless of insertion order.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketEmbeddings} {
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

func idKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func keyID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key))
}

// PutRecords stores cleaned corpus records.
func (s *BoltStore) PutRecords(records []domain.Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, rec := range records {
			if err := b.Put(idKey(rec.ID), []byte(rec.Text)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetRecord(id int64) (domain.Record, error) {
	var rec domain.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("record not found: %d", id)
		}
		rec = domain.Record{ID: id, Text: string(data)}
		return nil
	})
	return rec, err
}

func (s *BoltStore) ListRecords() ([]domain.Record, error) {
	var records []domain.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			records = append(records, domain.Record{ID: keyID(k), Text: string(v)})
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) CountRecords() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketRecords).Stats().KeyN
		return nil
	})
	return n, err
}

// PutEmbeddings stores one raw vector per id. ids and vectors are
// parallel slices, as returned by a provider batch.
func (s *BoltStore) PutEmbeddings(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("id count %d does not match vector count %d", len(ids), len(vectors))
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, id := range ids {
			if err := b.Put(idKey(id), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) ForEachEmbedding(fn func(id int64, vector []float32) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, v []byte) error {
			vec, err := decodeVector(v)
			if err != nil {
				return fmt.Errorf("embedding for id %d: %w", keyID(k), err)
			}
			return fn(keyID(k), vec)
		})
	})
}

func (s *BoltStore) CountEmbeddings() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	return n, err
}

// ResetEmbeddings drops the embeddings bucket for a fresh generation run.
func (s *BoltStore) ResetEmbeddings() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmbeddings); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEmbeddings)
		return err
	})
}

// Vectors are stored as raw little-endian float32, four bytes per
// component. JSON would be ~6x larger for a 1536-dim embedding.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("malformed vector of %d bytes", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

package boltstore

import (
	"fmt"
	"log"
	"os"

	"github.com/crystal-mush/gomoo/pkg/moodb"
	bbolt "go.etcd.io/bbolt"
)

// Store wraps a bbolt database and an in-memory cache for ACID
// persistence. All reads go through the cache; writes go through to
// bbolt so a compile is durable before the user hears about it.
type Store struct {
	bolt  *bbolt.DB
	cache *moodb.Database
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketObjects} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{
		bolt:  db,
		cache: moodb.NewDatabase(),
	}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// DB returns the in-memory database cache.
func (s *Store) DB() *moodb.Database {
	return s.cache
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutObject persists a single object to bbolt (write-through).
func (s *Store) PutObject(obj *moodb.Object) error {
	data, err := encodeObject(obj)
	if err != nil {
		return fmt.Errorf("boltstore: encode object #%d: %w", obj.ID, err)
	}
	err = s.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Put(idToKey(obj.ID), data); err != nil {
			return err
		}
		if obj.ID > s.cache.MaxObj {
			return tx.Bucket(bucketMeta).Put(keyMaxObj, intToKey(int(obj.ID)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if obj.ID > s.cache.MaxObj {
		s.cache.MaxObj = obj.ID
	}
	return nil
}

// PutObjects persists multiple objects in a single bbolt transaction.
func (s *Store) PutObjects(objs ...*moodb.Object) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for _, obj := range objs {
			if obj == nil {
				continue
			}
			data, err := encodeObject(obj)
			if err != nil {
				return fmt.Errorf("boltstore: encode object #%d: %w", obj.ID, err)
			}
			if err := b.Put(idToKey(obj.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteObject removes an object from bbolt.
func (s *Store) DeleteObject(id moodb.ObjID) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Delete(idToKey(id))
	})
}

// ImportFromDatabase bulk-writes an entire in-memory database,
// replacing the cache. Used for first boot from a seed world.
func (s *Store) ImportFromDatabase(db *moodb.Database) error {
	objs := make([]*moodb.Object, 0, len(db.Objects))
	for _, obj := range db.Objects {
		objs = append(objs, obj)
	}
	if err := s.PutObjects(objs...); err != nil {
		return err
	}
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyMaxObj, intToKey(int(db.MaxObj)))
	})
	if err != nil {
		return fmt.Errorf("boltstore: write meta: %w", err)
	}
	s.cache = db
	log.Printf("boltstore: imported %d objects", len(objs))
	return nil
}

// LoadAll populates the in-memory cache from bbolt.
func (s *Store) LoadAll() error {
	count := 0
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyMaxObj); v != nil {
			s.cache.MaxObj = moodb.ObjID(keyToInt(v))
		}
		b := tx.Bucket(bucketObjects)
		return b.ForEach(func(k, v []byte) error {
			obj, err := decodeObject(v)
			if err != nil {
				return fmt.Errorf("decode object %d: %w", keyToID(k), err)
			}
			s.cache.Add(obj)
			count++
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load objects: %w", err)
	}
	log.Printf("boltstore: loaded %d objects from bolt", count)
	return nil
}

// HasData reports whether the objects bucket contains anything.
func (s *Store) HasData() bool {
	has := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(bucketObjects).Cursor().First()
		has = k != nil
		return nil
	})
	return has
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return f.Sync()
	})
}

package session

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// The auth/session subsystem writes these keys at login; the print pipeline
// only ever reads restaurantId.
const keyRestaurantID = "restaurantId"

// Store is the local key-value store shared with the session subsystem.
type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// RestaurantID returns the business identifier scoping all order queries.
// A missing key is not an error; callers treat empty as "not logged in".
func (s *Store) RestaurantID() (string, error) {
	return s.get(keyRestaurantID)
}

func (s *Store) SetRestaurantID(id string) error {
	return s.set(keyRestaurantID, id)
}

func (s *Store) get(key string) (string, error) {
	var val string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	return val, err
}

func (s *Store) set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

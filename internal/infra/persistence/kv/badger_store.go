package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type badgerStore struct {
	db   *badger.DB
	name string
}

// OpenBadger dir 为空时使用内存模式
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}

// InitBadgerStore 关闭 Store 会同时关闭 db
func InitBadgerStore(db *badger.DB, name string) Store {
	return &badgerStore{db: db, name: name}
}

func (s *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	tx := s.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get([]byte(namespaced(s.name, key)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("badger copy %s: %w", key, err)
	}
	return value, nil
}

func (s *badgerStore) Set(ctx context.Context, key string, value []byte) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set([]byte(namespaced(s.name, key)), value); err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("badger commit %s: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Delete([]byte(namespaced(s.name, key))); err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

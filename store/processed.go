// ABOUTME: Persistent set of processed message keys backed by BadgerDB
// ABOUTME: Keys expire after a retention window so the set stays bounded
package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// DefaultRetention is how long a processed key is remembered.
const DefaultRetention = 90 * 24 * time.Hour

const keyPrefix = "processed:"

// Processed remembers which inbound messages were already handled.
type Processed struct {
	db        *badger.DB
	retention time.Duration
	mu        sync.RWMutex
}

// Open opens or creates the store in dir.
func Open(dir string, retention time.Duration) (*Processed, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	return open(badger.DefaultOptions(dir).WithLogger(nil), retention)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(retention time.Duration) (*Processed, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), retention)
}

func open(opts badger.Options, retention time.Duration) (*Processed, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Processed{db: db, retention: retention}, nil
}

// Seen reports whether key was marked and has not yet expired.
func (p *Processed) Seen(key string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	err := p.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyPrefix + key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processed key: %w", err)
	}
	return true, nil
}

// Mark records key as processed at the given time.
func (p *Processed) Mark(key string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), []byte(at.UTC().Format(time.RFC3339))).
			WithTTL(p.retention)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to mark processed key: %w", err)
	}
	return nil
}

// Forget removes key so the message is handled again on the next poll.
func (p *Processed) Forget(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("failed to forget processed key: %w", err)
	}
	return nil
}

// Keys lists every live processed key.
func (p *Processed) Keys() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var keys []string
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().KeyCopy(nil)), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list processed keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of live processed keys.
func (p *Processed) Count() (int, error) {
	keys, err := p.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (p *Processed) Close() error {
	return p.db.Close()
}

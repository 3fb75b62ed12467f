// Copyright © 2024 The ELPS authors

// Package cache stores per-file diagnostics in a bbolt database so that
// unchanged inputs are not re-analyzed.
//
// Entries are keyed by a digest of everything that determines a file's
// findings: its name, its content, its environment and the names of the
// checks that ran. A changed input therefore never hits a stale entry and
// no invalidation is needed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/luthersystems/jscheck/lint"
	"github.com/tliron/commonlog"
	bolt "go.etcd.io/bbolt"
)

var log = commonlog.GetLogger("jscheck.cache")

const (
	bucketDiagnostics = "diagnostics"

	// version changes whenever the stored format or analyzer semantics do.
	version = "jscheck-cache/2"
)

// ErrClosed is returned when using a closed Cache.
var ErrClosed = errors.New("cache: closed")

// Cache is a persistent diagnostics cache.
type Cache struct {
	db *bolt.DB
}

// Open opens or creates the cache database at path. It waits at most one
// second for another process holding the file lock.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDiagnostics))
		return err
	})
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("cache: initialize %s: %w", path, err)
	}
	log.Debugf("opened cache %s", path)
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	if c.db == nil {
		return ErrClosed
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Key returns the cache key of one analysis of source.
func Key(filename string, source []byte, env lint.Env, analyzers []string) string {
	h := sha256.New()
	write := func(b []byte) {
		fmt.Fprintf(h, "%d:", len(b))
		h.Write(b) //nolint:errcheck // hash writes never fail
	}
	write([]byte(version))
	write([]byte(filename))
	write(source)
	for _, names := range [][]string{env.Provides, env.Requires, env.Overrides, env.Builtins, analyzers} {
		names = append([]string(nil), names...)
		sort.Strings(names)
		write([]byte(fmt.Sprint(len(names))))
		for _, n := range names {
			write([]byte(n))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the diagnostics stored under key. The second result is false
// on a miss.
func (c *Cache) Get(key string) ([]lint.Diagnostic, bool, error) {
	if c.db == nil {
		return nil, false, ErrClosed
	}
	var diags []lint.Diagnostic
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketDiagnostics)).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &diags)
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: entry %s: %w", key, err)
	}
	return diags, found, nil
}

// Put stores diags under key, replacing any previous entry.
func (c *Cache) Put(key string, diags []lint.Diagnostic) error {
	if c.db == nil {
		return ErrClosed
	}
	if diags == nil {
		diags = []lint.Diagnostic{}
	}
	v, err := json.Marshal(diags)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDiagnostics)).Put([]byte(key), v)
	})
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	if c.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketDiagnostics)).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear deletes every entry.
func (c *Cache) Clear() error {
	if c.db == nil {
		return ErrClosed
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketDiagnostics)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketDiagnostics))
		return err
	})
}

package repo

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketRepos = []byte("repos")
	bucketIndex = []byte("index_cache")
)

// Config is one configured repository, added via `moss repo add`.
type Config struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
}

// indexCacheEntry is the last-seen state of one repository's stone.index.
type indexCacheEntry struct {
	ETag      string `json:"etag"`
	FetchedAt int64  `json:"fetched_at"`
	Raw       []byte `json:"raw"`
}

// Cache is the bbolt-backed store of configured repositories and their
// last-fetched index bytes.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketRepos, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("repo: create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// AddRepo registers or replaces a repository configuration.
func (c *Cache) AddRepo(cfg Config) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRepos).Put([]byte(cfg.Name), data)
	})
}

// RemoveRepo drops a repository configuration and its cached index.
func (c *Cache) RemoveRepo(name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRepos).Delete([]byte(name)); err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Delete([]byte(name))
	})
}

// GetRepo returns the named repository's configuration, or ok=false if
// unconfigured.
func (c *Cache) GetRepo(name string) (cfg Config, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRepos).Get([]byte(name))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &cfg)
	})
	return cfg, ok, err
}

// ListRepos returns every configured repository.
func (c *Cache) ListRepos() ([]Config, error) {
	var out []Config
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRepos).ForEach(func(k, v []byte) error {
			var cfg Config
			if err := json.Unmarshal(v, &cfg); err != nil {
				return err
			}
			out = append(out, cfg)
			return nil
		})
	})
	return out, err
}

func (c *Cache) saveIndex(name string, entry indexCacheEntry) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put([]byte(name), data)
	})
}

func (c *Cache) loadIndex(name string) (entry indexCacheEntry, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketIndex).Get([]byte(name))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &entry)
	})
	return entry, ok, err
}

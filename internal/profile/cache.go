// Package profile caches the last-known authenticated identity and small
// non-sensitive settings in a local SQLite database. This is the
// lower-protection storage tier; nothing here is confidential.
package profile

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amanpay/appcore/internal/models"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS profile_cache (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// legacyUserKey is the pre-namespacing key some installs still carry.
const legacyUserKey = "ap_user_json"

// Cache stores the profile blob under an app-identity-namespaced key so
// separate build variants (dev/prod) do not collide.
type Cache struct {
	db      *sql.DB
	userKey string
	log     *zap.Logger
}

// Open opens (or creates) the cache database at path. appID namespaces
// the profile key, e.g. "com.amanpay.app".
func Open(path, appID string, log *zap.Logger) (*Cache, error) {
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping profile db: %w", err)
	}
	cache, err := New(db, appID, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cache, nil
}

// New initializes the schema on an existing handle and runs the one-time
// legacy key migration.
func New(db *sql.DB, appID string, log *zap.Logger) (*Cache, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create profile schema: %w", err)
	}
	c := &Cache{db: db, userKey: appID + ".user.json", log: log}
	if err := c.migrateLegacyKey(); err != nil {
		return nil, err
	}
	return c, nil
}

// migrateLegacyKey moves the profile blob from the legacy key to the
// namespaced key, only when no namespaced entry exists yet. After the
// move the legacy row is gone, so reruns are no-ops.
func (c *Cache) migrateLegacyKey() error {
	if c.userKey == legacyUserKey {
		return nil
	}
	res, err := c.db.Exec(
		`UPDATE profile_cache SET key = ? WHERE key = ?
		   AND NOT EXISTS (SELECT 1 FROM profile_cache WHERE key = ?)`,
		c.userKey, legacyUserKey, c.userKey,
	)
	if err != nil {
		return fmt.Errorf("migrate profile key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.log.Info("migrated cached profile to namespaced key",
			zap.String("from", legacyUserKey), zap.String("to", c.userKey))
	}
	return nil
}

// Save caches the profile for instant hydration on the next launch.
func (c *Cache) Save(p *models.ProfileRecord) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO profile_cache (key, data, updated_at) VALUES (?, ?, ?)
		   ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		c.userKey, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Read returns the cached profile, or nil when absent. Read failures are
// logged and reported as a miss; the cache is advisory.
func (c *Cache) Read() *models.ProfileRecord {
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM profile_cache WHERE key = ?`, c.userKey).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn("profile cache read failed", zap.Error(err))
		}
		return nil
	}
	var p models.ProfileRecord
	if err := json.Unmarshal(data, &p); err != nil {
		c.log.Warn("profile cache decode failed", zap.Error(err))
		return nil
	}
	return &p
}

// Clear removes the cached profile. Idempotent.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM profile_cache WHERE key = ?`, c.userKey); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

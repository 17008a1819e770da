package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Settings: tiny boolean preferences sharing the cache table, keyed under
// a "settings." prefix. Used for the device-lock biometric toggle.

// SetBool persists a boolean preference.
func (c *Cache) SetBool(name string, on bool) error {
	value := []byte("0")
	if on {
		value = []byte("1")
	}
	_, err := c.db.Exec(
		`INSERT INTO profile_cache (key, data, updated_at) VALUES (?, ?, ?)
		   ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		"settings."+name, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save setting %q: %w", name, err)
	}
	return nil
}

// GetBool reads a boolean preference; absent or unreadable means false.
func (c *Cache) GetBool(name string) bool {
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM profile_cache WHERE key = ?`, "settings."+name).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn("setting read failed", zap.String("name", name), zap.Error(err))
		}
		return false
	}
	return string(data) == "1"
}

// Package localstore keeps small values between runs, the way the browser
// UI used local storage: plain strings or JSON under well known keys.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	logging "github.com/ipfs/go-log/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logging.Logger("tims/localstore")

// Keys remembered for the work screen.
const (
	KeyLastClient  = "work_last_client"
	KeyLastProject = "work_last_project"
	KeyLastTask    = "work_last_task"
	KeyPrevClient  = "work_prev_client"
	KeyPrevProject = "work_prev_project"
	KeyPrevTask    = "work_prev_task"
	KeyElapsedType = "work_elapsed_type"
	KeyPrevList    = "work_prev_list"
)

// Item is one stored value.
type Item struct {
	Name      string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Item) TableName() string { return "local_items" }

// Store is backed by a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the connection so other state (the session cookie) can live in
// the same file.
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// String returns the value under name, or def when missing or on error.
func (s *Store) String(name, def string) string {
	var item Item
	err := s.db.Where("name = ?", name).Take(&item).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnw("read failed", "name", name, "err", err)
		}
		return def
	}
	return item.Value
}

// SetString stores value under name, skipping the write when it is
// unchanged. It reports whether anything was written.
func (s *Store) SetString(name, value string) (bool, error) {
	var current Item
	err := s.db.Where("name = ?", name).Take(&current).Error
	switch {
	case err == nil && current.Value == value:
		return false, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("read %s: %w", name, err)
	}

	item := Item{Name: name}
	if err := s.db.Where("name = ?", name).Assign(Item{Value: value}).FirstOrCreate(&item).Error; err != nil {
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	return true, nil
}

// JSON decodes the value under name into v. It reports false when there is
// no value.
func (s *Store) JSON(name string, v any) (bool, error) {
	raw := s.String(name, "")
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// SetJSON stores v encoded as JSON.
func (s *Store) SetJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = s.SetString(name, string(b))
	return err
}

// Remove deletes the value under name.
func (s *Store) Remove(name string) error {
	return s.db.Where("name = ?", name).Delete(&Item{}).Error
}

// LastUsedKey builds work_{which}_{kind}, e.g. work_last_client.
func LastUsedKey(which, kind string) string {
	return fmt.Sprintf("work_%s_%s", which, kind)
}

// StoreLastUsed remembers a selection. Empty values are not stored.
func (s *Store) StoreLastUsed(which, kind, value string) error {
	if value == "" {
		return nil
	}
	_, err := s.SetString(LastUsedKey(which, kind), value)
	return err
}

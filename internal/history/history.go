// Package history persists status records to SQLite so recent readings
// survive restarts and can be served over HTTP.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sweeney/thermostat/internal/logger"
	"github.com/sweeney/thermostat/internal/thermostat"
)

// Entry is one stored status record.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"-"`
	RecordedAt  time.Time `gorm:"index" json:"time"`
	Temperature int       `json:"temperature"`
	Setpoint    int       `json:"setpoint"`
	Heating     bool      `json:"heating"`
	Seconds     uint      `json:"seconds"`
}

// TableName pins the table name.
func (Entry) TableName() string { return "records" }

// Store is a bounded record log. Rows beyond MaxRows are pruned oldest
// first on each Save.
type Store struct {
	db      *gorm.DB
	maxRows int
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store. maxRows <= 0 disables pruning.
func Open(path string, maxRows int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history db handle: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writes.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, maxRows: maxRows}, nil
}

// Save appends rec and prunes old rows.
func (s *Store) Save(rec thermostat.Record) error {
	e := Entry{
		RecordedAt:  rec.Time,
		Temperature: rec.Temperature,
		Setpoint:    rec.Setpoint,
		Heating:     rec.Heating,
		Seconds:     rec.Seconds,
	}
	if err := s.db.Create(&e).Error; err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	if s.maxRows > 0 && e.ID > uint(s.maxRows) {
		res := s.db.Where("id <= ?", e.ID-uint(s.maxRows)).Delete(&Entry{})
		if res.Error != nil {
			return fmt.Errorf("prune history: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			logger.Debug("history: pruned %d rows", res.RowsAffected)
		}
	}
	return nil
}

// Observe implements thermostat.Observer.
func (s *Store) Observe(rec thermostat.Record) error {
	return s.Save(rec)
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := s.db.Order("id DESC").Limit(n).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package store persists results in sqlite, one document per draw code.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// DefaultLimit caps List when the query does not set a limit.
const DefaultLimit = 100

// ErrNoCode is returned when a result without a draw code is upserted.
var ErrNoCode = errors.New("store: result has no draw code")

// record is the results table row.
type record struct {
	Code       string         `gorm:"primaryKey;size:64"`
	Name       string         `gorm:"index;not null"`
	DrawDate   string         `gorm:"index"`
	ISODate    *time.Time     `gorm:"index"`
	Prizes     lottery.Prizes `gorm:"serializer:json"`
	IsLive     bool
	IsUpcoming bool
	Source     string
	ScrapedAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (record) TableName() string { return "results" }

func fromResult(r lottery.Result) record {
	return record{
		Code:       r.Code,
		Name:       r.Name,
		DrawDate:   r.DrawDate,
		ISODate:    r.ISODate,
		Prizes:     r.Prizes,
		IsLive:     r.IsLive,
		IsUpcoming: r.IsUpcoming,
		Source:     r.Source,
		ScrapedAt:  r.ScrapedAt,
	}
}

func (rec record) result() *lottery.Result {
	r := lottery.Result{
		Name:       rec.Name,
		Code:       rec.Code,
		DrawDate:   rec.DrawDate,
		ISODate:    rec.ISODate,
		Prizes:     rec.Prizes,
		IsLive:     rec.IsLive,
		IsUpcoming: rec.IsUpcoming,
		Source:     rec.Source,
		ScrapedAt:  rec.ScrapedAt.UTC(),
	}
	if r.ISODate != nil {
		d := lottery.CivilDate(r.ISODate.UTC())
		r.ISODate = &d
	}
	if r.Prizes == nil {
		r.Prizes = lottery.Prizes{}
	}
	return &r
}

// Store is the sqlite-backed result sink.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: empty database path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.New(&log.Logger, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert merges r into the stored document with the same code, or inserts
// it. Each call runs in one transaction so concurrent writers for a code
// never interleave partial field sets.
func (s *Store) Upsert(ctx context.Context, r *lottery.Result) error {
	if r == nil {
		return errors.New("store: nil result")
	}
	incoming := lottery.Normalize(*r)
	if incoming.Code == lottery.Unknown {
		return ErrNoCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing record
		err := tx.Where("code = ?", incoming.Code).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec := fromResult(incoming)
			return tx.Create(&rec).Error
		case err != nil:
			return err
		}
		merged := lottery.Merge(*existing.result(), incoming)
		rec := fromResult(merged)
		rec.CreatedAt = existing.CreatedAt
		return tx.Save(&rec).Error
	})
}

// Get returns the result stored under code, or nil when there is none.
func (s *Store) Get(ctx context.Context, code string) (*lottery.Result, error) {
	var rec record
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.result(), nil
}

// ListQuery filters List. Name matches case-insensitively and exactly.
type ListQuery struct {
	Name  string
	Limit int
}

// List returns results newest draw first.
func (s *Store) List(ctx context.Context, q ListQuery) ([]lottery.Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	tx := s.db.WithContext(ctx).Model(&record{})
	if name := strings.TrimSpace(q.Name); name != "" {
		tx = tx.Where("LOWER(name) = LOWER(?)", name)
	}
	var recs []record
	if err := tx.Order("iso_date DESC").Order("scraped_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]lottery.Result, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.result())
	}
	return out, nil
}

// Names returns the distinct series names, sorted.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&record{}).
		Where("name <> ?", lottery.Unknown).
		Distinct().Order("name").Pluck("name", &names).Error
	return names, err
}

// FindFinalized returns the finalized result drawn on day's calendar date,
// or nil. Placeholders and live results do not count.
func (s *Store) FindFinalized(ctx context.Context, day time.Time) (*lottery.Result, error) {
	start := lottery.CivilDate(day)
	var rec record
	err := s.db.WithContext(ctx).
		Where("iso_date >= ? AND iso_date < ?", start, start.AddDate(0, 0, 1)).
		Where("is_upcoming = ? AND is_live = ?", false, false).
		Order("scraped_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.result(), nil
}

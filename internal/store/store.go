// Package store persists conversion records in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/reliefmesh/internal/relief"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("conversion not found")

// Conversion is one recorded conversion.
type Conversion struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Source       string `json:"source"`
	Status       string `gorm:"index;not null" json:"status"`
	DepthMapPath string `json:"depth_map_path,omitempty"`
	MeshPath     string `json:"mesh_path,omitempty"`
	Triangles    int    `json:"triangles"`
	GridWidth    int    `json:"grid_width"`
	GridHeight   int    `json:"grid_height"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"duration_ms"`

	CreatedAt int64 `gorm:"autoCreateTime:milli;index" json:"created_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}

// Store wraps the records database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Conversion{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert adds c. Ids are unique.
func (s *Store) Insert(ctx context.Context, c *Conversion) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Record stores a conversion result.
func (s *Store) Record(ctx context.Context, source string, res relief.Result) error {
	return s.Insert(ctx, FromResult(source, res))
}

// FromResult converts a result to a record.
func FromResult(source string, res relief.Result) *Conversion {
	return &Conversion{
		ID:           res.ID,
		Source:       source,
		Status:       res.Status,
		DepthMapPath: res.DepthMapPath,
		MeshPath:     res.MeshPath,
		Triangles:    res.Triangles,
		GridWidth:    res.Width,
		GridHeight:   res.Height,
		ErrorKind:    string(res.ErrorKind),
		Error:        res.Error,
		DurationMS:   res.Duration.Milliseconds(),
	}
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Conversion, error) {
	var c Conversion
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListOptions filters List.
type ListOptions struct {
	Status string // empty matches any
	Limit  int    // 0 means 50
	Offset int
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Conversion, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Order("created_at DESC, rowid DESC").Limit(limit).Offset(opts.Offset)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var out []Conversion
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

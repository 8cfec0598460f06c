// Package metadata keeps off-chain profile details (contact data, birth
// date, picture) in a local SQLite database.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/logging"
)

// ErrInvalid wraps validation failures of submitted metadata.
var ErrInvalid = errors.New("invalid profile metadata")

type record struct {
	ProfileID string    `gorm:"column:profile_id;primaryKey"`
	Location  string    `gorm:"column:location"`
	Phone     string    `gorm:"column:phone"`
	Email     string    `gorm:"column:email"`
	Website   string    `gorm:"column:website"`
	ImageURL  string    `gorm:"column:image_url"`
	BirthDate string    `gorm:"column:birth_date"`
	Gender    string    `gorm:"column:gender"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (record) TableName() string { return "profile_metadata" }

// Store reads and writes profile metadata.
type Store struct {
	db       *gorm.DB
	validate *validator.Validate
	now      func() time.Time
}

// Open creates the database file and its parent directory when missing and
// migrates the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.New(logging.PrintfAdapter(logger, "gorm", slog.LevelWarn), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate metadata db: %w", err)
	}
	return &Store{db: db, validate: validator.New(), now: time.Now}, nil
}

// WithClock overrides the time source used for updated_at.
func (s *Store) WithClock(fn func() time.Time) *Store {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Get returns the stored metadata for id, or a record holding only the id
// when nothing was saved yet.
func (s *Store) Get(ctx context.Context, id string) (domain.ProfileMetadata, error) {
	id = strings.TrimSpace(id)
	var rec record
	err := s.db.WithContext(ctx).Where("profile_id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ProfileMetadata{ProfileID: id}, nil
	}
	if err != nil {
		return domain.ProfileMetadata{}, fmt.Errorf("get metadata %s: %w", id, err)
	}
	return rec.toDomain(), nil
}

// Upsert validates md and replaces the stored record. It returns the new
// updated_at timestamp.
func (s *Store) Upsert(ctx context.Context, md domain.ProfileMetadata) (time.Time, error) {
	md.ProfileID = strings.TrimSpace(md.ProfileID)
	if err := s.validate.Struct(md); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	rec := fromDomain(md)
	rec.UpdatedAt = s.now().UTC()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("save metadata %s: %w", md.ProfileID, err)
	}
	return rec.UpdatedAt, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromDomain(md domain.ProfileMetadata) record {
	return record{
		ProfileID: md.ProfileID,
		Location:  md.Location,
		Phone:     md.Phone,
		Email:     md.Email,
		Website:   md.Website,
		ImageURL:  md.ImageURL,
		BirthDate: md.BirthDate,
		Gender:    md.Gender,
	}
}

func (r record) toDomain() domain.ProfileMetadata {
	md := domain.ProfileMetadata{
		ProfileID: r.ProfileID,
		Location:  r.Location,
		Phone:     r.Phone,
		Email:     r.Email,
		Website:   r.Website,
		ImageURL:  r.ImageURL,
		BirthDate: r.BirthDate,
		Gender:    r.Gender,
	}
	if !r.UpdatedAt.IsZero() {
		updated := r.UpdatedAt.UTC()
		md.UpdatedAt = &updated
	}
	return md
}

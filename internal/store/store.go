// Package store keeps operator state that the remote services do not:
// the selected location, terms acceptance and a history of toasts.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/zulandar/wapanel/internal/config"
	"github.com/zulandar/wapanel/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps the local database.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates it.
func Open(c config.DatabaseConfig) (*Store, error) {
	db, err := Connect(c)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an already migrated connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return sqlDB.Close()
}

// Preference returns the stored value for key, or "" when unset.
func (s *Store) Preference(ctx context.Context, key string) (string, error) {
	var p models.Preference
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get preference %q: %w", key, err)
	}
	return p.Value, nil
}

// SetPreference upserts a preference.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	p := models.Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("store: set preference %q: %w", key, err)
	}
	return nil
}

// LocationID returns the remembered location.
func (s *Store) LocationID(ctx context.Context) (string, error) {
	return s.Preference(ctx, models.PrefLocationID)
}

// SetLocationID remembers the location for later sessions.
func (s *Store) SetLocationID(ctx context.Context, id string) error {
	return s.SetPreference(ctx, models.PrefLocationID, id)
}

// TermsAccepted reports whether the operator accepted the terms.
func (s *Store) TermsAccepted(ctx context.Context) (bool, error) {
	v, err := s.Preference(ctx, models.PrefTermsAccepted)
	if err != nil || v == "" {
		return false, err
	}
	ok, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// AcceptTerms records terms acceptance.
func (s *Store) AcceptTerms(ctx context.Context) error {
	return s.SetPreference(ctx, models.PrefTermsAccepted, "true")
}

// AddActivity appends a toast to the history.
func (s *Store) AddActivity(ctx context.Context, level, text, locationID string) error {
	a := models.Activity{Level: level, Text: text, LocationID: locationID}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return fmt.Errorf("store: add activity: %w", err)
	}
	return nil
}

// TakeUnseen returns toasts not yet shown for the location, oldest first,
// and marks them seen.
func (s *Store) TakeUnseen(ctx context.Context, locationID string) ([]models.Activity, error) {
	var out []models.Activity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("seen = ? AND location_id = ?", false, locationID).
			Order("id ASC").Find(&out).Error; err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		ids := make([]uint, len(out))
		for i, a := range out {
			ids[i] = a.ID
		}
		return tx.Model(&models.Activity{}).Where("id IN ?", ids).Update("seen", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store: take unseen: %w", err)
	}
	return out, nil
}

// RecentActivities returns the newest toasts first.
func (s *Store) RecentActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Activity
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: recent activities: %w", err)
	}
	return out, nil
}

// PruneActivities deletes toasts older than the cutoff.
func (s *Store) PruneActivities(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.Activity{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: prune activities: %w", res.Error)
	}
	return res.RowsAffected, nil
}

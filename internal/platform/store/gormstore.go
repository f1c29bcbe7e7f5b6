package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the gorm model backing the Postgres store: one JSONB blob
// per (collection, key).
type DocumentRow struct {
	Collection string         `gorm:"column:collection;type:varchar(64);primaryKey"`
	Key        string         `gorm:"column:key;type:varchar(128);primaryKey"`
	Data       datatypes.JSON `gorm:"column:data;type:jsonb;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (DocumentRow) TableName() string {
	return "document"
}

const mutateAttempts = 3

// GormStore implements Store on Postgres. Mutual exclusion comes from row
// locks inside database transactions, so it is safe across processes.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, collection, key string, out any) (bool, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(row.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	return true, nil
}

func (s *GormStore) Set(ctx context.Context, collection, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, key, err)
	}
	row := DocumentRow{Collection: collection, Key: key, Data: data}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *GormStore) Mutate(ctx context.Context, collection, key string, fn MutateFunc) error {
	var lastErr error
	for attempt := 0; attempt < mutateAttempts; attempt++ {
		err := s.mutateOnce(ctx, collection, key, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *GormStore) mutateOnce(ctx context.Context, collection, key string, fn MutateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row DocumentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND key = ?", collection, key).
			First(&row).Error

		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		var raw json.RawMessage
		if exists {
			raw = json.RawMessage(row.Data)
		}
		updated, err := fn(raw, exists)
		if err != nil {
			return err
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to encode document %s/%s: %w", collection, key, err)
		}

		if exists {
			return tx.Model(&DocumentRow{}).
				Where("collection = ? AND key = ?", collection, key).
				Update("data", datatypes.JSON(data)).Error
		}
		// First writer wins on concurrent creation; the loser retries and
		// sees the committed row under lock.
		return tx.Create(&DocumentRow{Collection: collection, Key: key, Data: data}).Error
	})
}

func (s *GormStore) List(ctx context.Context, collection string, page Page) ([]Document, string, error) {
	if page.Size <= 0 {
		page.Size = 100
	}
	var rows []DocumentRow
	q := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("key asc").
		Limit(page.Size)
	if page.Cursor != "" {
		q = q.Where("key > ?", page.Cursor)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{Key: row.Key, Data: json.RawMessage(row.Data)})
	}
	next := ""
	if len(rows) == page.Size {
		next = rows[len(rows)-1].Key
	}
	return docs, next, nil
}

// retryable reports whether a mutateOnce failure is worth another attempt:
// serialization failures, deadlocks, and lost creation races.
func retryable(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "duplicate key")
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"visitor-desk/internal/models"
)

const (
	bucketName      = "visitor-desk"
	registrationKey = "registrations"
)

// Bolt keeps the registration list as JSON text in a BoltDB file.
type Bolt struct {
	db *bbolt.DB
}

// Open opens (or creates) the BoltDB file at path.
func Open(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) Load(ctx context.Context) ([]models.Registration, error) {
	regs := []models.Registration{}
	if err := ctx.Err(); err != nil {
		return regs, err
	}
	if s == nil || s.db == nil {
		return regs, fmt.Errorf("%w: storage is not configured", models.ErrStorageUnavailable)
	}

	var payload []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s is missing", bucketName)
		}
		// bbolt memory is only valid inside the transaction.
		if v := bucket.Get([]byte(registrationKey)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return regs, fmt.Errorf("%w: read: %v", models.ErrStorageUnavailable, err)
	}
	return decode(payload)
}

func (s *Bolt) Save(ctx context.Context, regs []models.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("%w: storage is not configured", models.ErrStorageUnavailable)
	}

	payload, err := encode(regs)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s is missing", bucketName)
		}
		return bucket.Put([]byte(registrationKey), payload)
	})
	if err != nil {
		return fmt.Errorf("%w: write: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func encode(regs []models.Registration) ([]byte, error) {
	if regs == nil {
		regs = []models.Registration{}
	}
	payload, err := json.Marshal(regs)
	if err != nil {
		return nil, fmt.Errorf("marshal registrations: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) ([]models.Registration, error) {
	regs := []models.Registration{}
	if len(payload) == 0 {
		return regs, nil
	}
	if err := json.Unmarshal(payload, &regs); err != nil {
		return []models.Registration{}, fmt.Errorf("%w: corrupt data: %v", models.ErrStorageUnavailable, err)
	}
	return regs, nil
}

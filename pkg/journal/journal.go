package journal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/paddock/pkg/types"
)

var (
	// Bucket names
	bucketOperations = []byte("operations")
)

// keyTimeLayout is fixed-width so keys sort chronologically as bytes.
// RFC3339Nano trims trailing zeros, which breaks byte ordering between
// whole and fractional seconds.
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal is an append-only record of lifecycle operations, backed by
// bbolt. Keys are time-prefixed, so a reverse cursor walk yields records
// newest first without an index.
type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal database in the given directory.
func Open(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "paddock.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketOperations); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketOperations, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records one operation. Missing IDs and start times are filled
// in; the record is otherwise stored as given.
func (j *Journal) Append(record types.OperationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := record.StartedAt.UTC().Format(keyTimeLayout) + "/" + record.ID
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOperations).Put([]byte(key), data)
	})
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything.
func (j *Journal) Recent(limit int) ([]types.OperationRecord, error) {
	var records []types.OperationRecord

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOperations).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var record types.OperationRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", k, err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

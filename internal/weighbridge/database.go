package weighbridge

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const ticketsBucket = "tickets"

// ErrNotFound is returned when no ticket exists for an id
var ErrNotFound = errors.New("ticket not found")

// DB defines the interface for ticket persistence
type DB interface {
	// SaveRecord stores a record, assigning the next ticket id when the
	// record has none
	SaveRecord(record *Record) error

	// GetRecord retrieves a record by ticket id
	GetRecord(id string) (*Record, error)

	// ListRecords returns all records in issue order
	ListRecords() ([]*Record, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements DB on top of bbolt. Ticket ids come from the bucket
// sequence and keys are the big-endian encoded id, so a cursor walks the
// tickets in the order they were issued.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ticketsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveRecord stores a record
func (b *BoltDB) SaveRecord(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ticketsBucket))

		var seq uint64
		if record.ID == "" {
			next, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("allocating ticket id: %w", err)
			}
			seq = next
		} else {
			parsed, err := strconv.ParseUint(record.ID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket id %q: %w", record.ID, err)
			}
			seq = parsed
			if seq > bucket.Sequence() {
				if err := bucket.SetSequence(seq); err != nil {
					return fmt.Errorf("advancing ticket sequence: %w", err)
				}
			}
		}

		stored := *record
		stored.ID = strconv.FormatUint(seq, 10)
		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		if err := bucket.Put(itob(seq), data); err != nil {
			return err
		}
		record.ID = stored.ID
		return nil
	})
}

// GetRecord retrieves a record by ticket id
func (b *BoltDB) GetRecord(id string) (*Record, error) {
	seq, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var record *Record
	err = b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ticketsBucket)).Get(itob(seq))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns all records in issue order
func (b *BoltDB) ListRecords() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ticketsBucket)).ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Package engine holds the session handle to one open storage instance.
// The heavy lifting (allocation, write-ahead logging, on-disk layout,
// durability) is delegated to badger; this package adds the lump
// addressing scheme, the region header and an inspectable journal trail
// on top of it.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lumpkv/lumpadm/internal/metrics"
)

const (
	formatMajorVersion = 1
	formatMinorVersion = 0
)

var (
	// ErrStorageFull is returned by Put when the new record would not
	// fit into the data region.
	ErrStorageFull = errors.New("storage is full")

	// ErrNotStorage is returned by Open when the path holds no storage
	// header.
	ErrNotStorage = errors.New("no storage found at path")

	// ErrStorageExists is returned by Create when the path already
	// holds a storage.
	ErrStorageExists = errors.New("storage already exists at path")
)

// Key namespaces inside badger. Lump data, journal trail and meta
// records never collide because the first byte differs.
var (
	lumpKeyPrefix    = []byte("l/")
	journalKeyPrefix = []byte("j/")
	headerMetaKey    = []byte("!/header")
	stateMetaKey     = []byte("!/state")
)

// Options configures a Session. The zero value is usable.
type Options struct {
	// Logger is an optional structured logger. If nil, a stderr logger
	// is used.
	Logger *logrus.Logger
	// Metrics receives operation counters when set.
	Metrics *metrics.Aggregator
	// SyncWrites forces badger to fsync on every commit. The journal
	// sync operation works either way; this makes every put durable on
	// its own.
	SyncWrites bool
}

// Session is the live handle to one open storage instance. It owns
// exclusive access to the backing directory for its lifetime and must
// not be shared without external serialization.
type Session struct {
	db     *badger.DB
	header HeaderInfo
	state  sessionState
	log    *logrus.Logger
	agg    *metrics.Aggregator
}

// sessionState is the mutable meta record, persisted on every mutation.
type sessionState struct {
	Used              uint64 `json:"used"`
	JournalUnreleased uint64 `json:"journal_unreleased_head"`
	JournalHead       uint64 `json:"journal_head"`
	JournalTail       uint64 `json:"journal_tail"`
}

// Create initializes a new storage at path and opens a session on it.
// totalSize is the data-region budget; it is rounded up to the block
// size. The journal region is reserved in addition to it, sized as
// journalRatio of the budget, so a high ratio never starves the data
// region (benchmark sizing may push the ratio above 1 for many small
// records).
func Create(path string, totalSize uint64, journalRatio float64, opts Options) (*Session, error) {
	if totalSize == 0 {
		return nil, errors.New("storage capacity must be positive")
	}
	if journalRatio < 0 {
		return nil, fmt.Errorf("journal ratio %v must not be negative", journalRatio)
	}

	header := HeaderInfo{
		MajorVersion:      formatMajorVersion,
		MinorVersion:      formatMinorVersion,
		BlockSize:         BlockSize,
		InstanceUUID:      uuid.New(),
		DataRegionSize:    ceilAlign(totalSize),
		JournalRegionSize: ceilAlign(uint64(float64(totalSize) * journalRatio)),
	}

	s, err := openSession(path, opts)
	if err != nil {
		return nil, err
	}

	existing, err := s.loadHeader()
	if err != nil {
		s.db.Close()
		return nil, err
	}
	if existing != nil {
		s.db.Close()
		return nil, fmt.Errorf("create %s: %w", path, ErrStorageExists)
	}

	s.header = header
	if err := s.persistMeta(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path":          path,
		"uuid":          header.InstanceUUID,
		"dataRegion":    header.DataRegionSize,
		"journalRegion": header.JournalRegionSize,
	}).Info("storage created")
	reportDiskUsage(s.log, path)

	return s, nil
}

// Open opens a session on an existing storage.
func Open(path string, opts Options) (*Session, error) {
	if err := checkStoragePath(path); err != nil {
		return nil, err
	}

	s, err := openSession(path, opts)
	if err != nil {
		return nil, err
	}

	header, err := s.loadHeader()
	if err != nil {
		s.db.Close()
		return nil, err
	}
	if header == nil {
		s.db.Close()
		return nil, fmt.Errorf("open %s: %w", path, ErrNotStorage)
	}
	s.header = *header

	if err := s.loadState(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path": path,
		"uuid": s.header.InstanceUUID,
	}).Info("storage opened")
	reportDiskUsage(s.log, path)

	return s, nil
}

// checkStoragePath rejects paths that hold no storage before badger
// gets a chance to create one there. A failed open must leave the
// filesystem exactly as it found it.
func checkStoragePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open %s: %w", path, ErrNotStorage)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := os.Stat(filepath.Join(path, "MANIFEST")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open %s: %w", path, ErrNotStorage)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}

func openSession(path string, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil
	badgerOpts.ValueLogFileSize = 1024 * 1024 * 100
	badgerOpts.SyncWrites = opts.SyncWrites

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening storage at %s: %w", path, err)
	}

	return &Session{
		db:  db,
		log: opts.Logger,
		agg: opts.Metrics,
	}, nil
}

// Close releases the session. The storage may be opened again
// afterwards.
func (s *Session) Close() error {
	return s.db.Close()
}

// Header returns the immutable storage descriptor.
func (s *Session) Header() HeaderInfo {
	return s.header
}

// Usage reports the bytes currently occupied in the data region and the
// region's size.
func (s *Session) Usage() (used, capacity uint64) {
	return s.state.Used, s.header.DataRegionSize
}

func (s *Session) loadHeader() (*HeaderInfo, error) {
	var header *HeaderInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerMetaKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			header = &HeaderInfo{}
			return json.Unmarshal(val, header)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading storage header: %w", err)
	}
	return header, nil
}

func (s *Session) loadState() error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateMetaKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s.state)
		})
	})
	if err != nil {
		return fmt.Errorf("reading storage state: %w", err)
	}
	return nil
}

// persistMeta writes both meta records outside of any data mutation.
// Used during Create only; mutations persist state transactionally.
func (s *Session) persistMeta() error {
	headerBytes, err := json.Marshal(s.header)
	if err != nil {
		return err
	}
	stateBytes, err := json.Marshal(s.state)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(headerMetaKey, headerBytes); err != nil {
			return err
		}
		return txn.Set(stateMetaKey, stateBytes)
	})
}

func lumpKey(id LumpID) []byte {
	key := make([]byte, 0, len(lumpKeyPrefix)+len(id))
	key = append(key, lumpKeyPrefix...)
	return append(key, id[:]...)
}

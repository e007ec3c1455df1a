package engine

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Put stores data under id, overwriting any previous value. The
// returned bool is true when the key was newly inserted and false when
// an existing value was overwritten.
func (s *Session) Put(id LumpID, data []byte) (bool, error) {
	var (
		existed  bool
		prevSize uint64
		next     sessionState
	)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(lumpKey(id))
		switch {
		case err == nil:
			existed = true
			prevSize = uint64(item.ValueSize())
		case err != badger.ErrKeyNotFound:
			return err
		}

		next = s.state
		next.Used = usedAfterRelease(next.Used, prevSize) + uint64(len(data))
		if next.Used > s.header.DataRegionSize {
			return fmt.Errorf("%d bytes exceed the data region: %w", len(data), ErrStorageFull)
		}

		if err := txn.Set(lumpKey(id), data); err != nil {
			return err
		}
		return s.appendJournalEntry(txn, &next, JournalOpPut, id, uint64(len(data)))
	})
	if err != nil {
		return false, fmt.Errorf("put %s: %w", id, err)
	}

	s.state = next
	if s.agg != nil {
		s.agg.Puts.Inc()
		s.agg.BytesWritten.Add(float64(len(data)))
	}
	return !existed, nil
}

// Get returns the value stored under id. The bool reports whether the
// key was present.
func (s *Session) Get(id LumpID) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lumpKey(id))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		if s.agg != nil {
			s.agg.Gets.Inc()
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", id, err)
	}
	if s.agg != nil {
		s.agg.Gets.Inc()
	}
	return value, true, nil
}

// Delete removes the value stored under id. It returns true when a
// value existed, false when the key was already absent.
func (s *Session) Delete(id LumpID) (bool, error) {
	var (
		existed bool
		next    sessionState
	)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(lumpKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		prevSize := uint64(item.ValueSize())

		if err := txn.Delete(lumpKey(id)); err != nil {
			return err
		}
		next = s.state
		next.Used = usedAfterRelease(next.Used, prevSize)
		return s.appendJournalEntry(txn, &next, JournalOpDelete, id, prevSize)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}

	if existed {
		s.state = next
		if s.agg != nil {
			s.agg.Deletes.Inc()
		}
	}
	return existed, nil
}

// List enumerates the ids of all live lumps. No ordering is guaranteed
// to callers, although the current implementation yields ascending ids.
func (s *Session) List() ([]LumpID, error) {
	var ids []LumpID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(lumpKeyPrefix); it.ValidForPrefix(lumpKeyPrefix); it.Next() {
			raw := it.Item().Key()
			var id LumpID
			copy(id[:], raw[len(lumpKeyPrefix):])
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing lumps: %w", err)
	}
	return ids, nil
}

// usedAfterRelease subtracts a released allocation from the used
// figure, clamping at zero. ValueSize is approximate for entries that
// live in the value log, so the estimate may exceed the tracked total.
func usedAfterRelease(used, released uint64) uint64 {
	if released > used {
		return 0
	}
	return used - released
}

// appendJournalEntry records one mutation in the journal trail and
// persists the updated session state, all inside the caller's
// transaction so the trail never disagrees with the data.
func (s *Session) appendJournalEntry(txn *badger.Txn, next *sessionState, op JournalOp, id LumpID, size uint64) error {
	entry := JournalEntry{
		Position: next.JournalTail,
		Op:       op,
		LumpID:   id,
		Size:     size,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := txn.Set(journalKey(next.JournalTail), encoded); err != nil {
		return err
	}
	next.JournalTail += uint64(len(encoded))

	stateBytes, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return txn.Set(stateMetaKey, stateBytes)
}

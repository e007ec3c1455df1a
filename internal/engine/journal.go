package engine

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/dgraph-io/badger/v4"
)

// JournalOp tags one journal trail entry.
type JournalOp string

const (
	JournalOpPut    JournalOp = "PUT"
	JournalOpDelete JournalOp = "DELETE"
)

// JournalEntry is one recorded mutation. Position is the byte offset of
// the entry within the trail; Size is the payload size of the mutation.
type JournalEntry struct {
	Position uint64    `json:"position"`
	Op       JournalOp `json:"op"`
	LumpID   LumpID    `json:"lump_id"`
	Size     uint64    `json:"size"`
}

// JournalSnapshot is an immutable point-in-time view of the journal
// trail. It is produced on demand and never cached.
type JournalSnapshot struct {
	UnreleasedHead uint64
	Head           uint64
	Tail           uint64
	Entries        []JournalEntry
}

// JournalSnapshot reads the current journal positions and entries.
func (s *Session) JournalSnapshot() (JournalSnapshot, error) {
	snapshot := JournalSnapshot{
		UnreleasedHead: s.state.JournalUnreleased,
		Head:           s.state.JournalHead,
		Tail:           s.state.JournalTail,
	}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(journalKeyPrefix); it.ValidForPrefix(journalKeyPrefix); it.Next() {
			var entry JournalEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			snapshot.Entries = append(snapshot.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return JournalSnapshot{}, fmt.Errorf("reading journal: %w", err)
	}
	return snapshot, nil
}

// JournalSync flushes all pending writes to disk.
func (s *Session) JournalSync() error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("journal sync: %w", err)
	}
	if s.agg != nil {
		s.agg.JournalSyncs.Inc()
	}
	return nil
}

// JournalGC releases the whole journal trail and compacts the backing
// store: flatten the LSM tree, then rewrite stale value-log segments.
func (s *Session) JournalGC() error {
	next := s.state
	next.JournalUnreleased = next.JournalTail
	next.JournalHead = next.JournalTail

	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		var stale [][]byte
		for it.Seek(journalKeyPrefix); it.ValidForPrefix(journalKeyPrefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		stateBytes, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return txn.Set(stateMetaKey, stateBytes)
	})
	if err != nil {
		return fmt.Errorf("journal gc: releasing entries: %w", err)
	}
	s.state = next

	if err := s.db.Flatten(runtime.NumCPU()); err != nil {
		return fmt.Errorf("journal gc: flatten: %w", err)
	}
	if err := s.db.RunValueLogGC(0.1); err != nil && err != badger.ErrNoRewrite {
		return fmt.Errorf("journal gc: value log: %w", err)
	}
	return nil
}

func journalKey(position uint64) []byte {
	key := make([]byte, len(journalKeyPrefix)+8)
	copy(key, journalKeyPrefix)
	binary.BigEndian.PutUint64(key[len(journalKeyPrefix):], position)
	return key
}

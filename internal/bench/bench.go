// Package bench sizes and drives synthetic workloads against a freshly
// created storage. It talks to the engine session directly, without the
// facade, because it needs precise control over allocation and sync
// timing.
package bench

import (
	"fmt"
	"time"

	"github.com/lumpkv/lumpadm/internal/engine"
)

const (
	// journalBytesPerRecord is the minimum journal reservation per
	// record; without it the journal region starves under many small
	// records.
	journalBytesPerRecord = 256

	defaultJournalRatio = 0.01

	// marchingWindow is the size of the write-then-read-back batch of
	// the mixed workload.
	marchingWindow = 100
)

// Result reports one finished run.
type Result struct {
	TotalBytes uint64
	Elapsed    time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("total = %dByte, elapsed = %v", r.TotalBytes, r.Elapsed)
}

// SizeFor computes the storage capacity and journal ratio for count
// records of size bytes each: twice the payload as data headroom, and a
// journal ratio raised above the default whenever one percent of the
// capacity would give a record less than 256 bytes of journal.
func SizeFor(count, size uint64) (capacity uint64, journalRatio float64) {
	total := count * size
	capacity = total * 2
	journalRatio = defaultJournalRatio
	if uint64(float64(capacity)*journalRatio) < journalBytesPerRecord*count {
		journalRatio = float64(journalBytesPerRecord*count) / float64(capacity)
	}
	return capacity, journalRatio
}

// CreateStorage creates the ephemeral storage for a run of count
// records of size bytes and returns the open session together with the
// total payload size.
func CreateStorage(path string, count, size uint64, opts engine.Options) (*engine.Session, uint64, error) {
	if count == 0 || size == 0 {
		return nil, 0, fmt.Errorf("benchmark needs positive count and size, got count=%d size=%d", count, size)
	}
	capacity, ratio := SizeFor(count, size)
	session, err := engine.Create(path, capacity, ratio, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("benchmark storage: %w", err)
	}
	return session, count * size, nil
}

// RunWrite writes count zero-filled records of size bytes sequentially,
// syncing the journal after every put so the worst-case durability cost
// is measured rather than amortized.
func RunWrite(session *engine.Session, count, size uint64) (Result, error) {
	payload := make([]byte, size)

	start := time.Now()
	for i := uint64(0); i < count; i++ {
		id := engine.NewLumpID(0, i)
		if _, err := session.Put(id, payload); err != nil {
			return Result{}, fmt.Errorf("benchmark write %d: %w", i, err)
		}
		if err := session.JournalSync(); err != nil {
			return Result{}, fmt.Errorf("benchmark sync %d: %w", i, err)
		}
	}
	return Result{TotalBytes: count * size, Elapsed: time.Since(start)}, nil
}

// RunWriteRead writes sequentially like RunWrite (without per-put
// syncs) and reads every marching window back once it fills: after the
// 100th consecutive write all 100 keys of the window are fetched, the
// window is cleared and a new one starts. This exercises
// recency-sensitive engine behavior without assuming any cache layout.
func RunWriteRead(session *engine.Session, count, size uint64) (Result, error) {
	payload := make([]byte, size)
	window := make([]engine.LumpID, 0, marchingWindow)

	start := time.Now()
	for i := uint64(0); i < count; i++ {
		id := engine.NewLumpID(0, i)
		if _, err := session.Put(id, payload); err != nil {
			return Result{}, fmt.Errorf("benchmark write %d: %w", i, err)
		}
		window = append(window, id)
		if len(window) == marchingWindow {
			for _, key := range window {
				if _, _, err := session.Get(key); err != nil {
					return Result{}, fmt.Errorf("benchmark read %s: %w", key, err)
				}
			}
			window = window[:0]
		}
	}
	return Result{TotalBytes: count * size, Elapsed: time.Since(start)}, nil
}

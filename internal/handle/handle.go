// Package handle mediates all engine access for the command surface.
// It validates values before they reach the engine and keeps the
// printing concerns out of the storage layer.
package handle

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/lumpkv/lumpadm/internal/engine"
	"github.com/lumpkv/lumpadm/internal/metrics"
)

// ErrInvalidValue rejects values that are not valid UTF-8 text or that
// embed a NUL byte. The check runs locally; the engine is never called.
var ErrInvalidValue = errors.New("value must be valid UTF-8 without NUL bytes")

// Pair is one key/value entry of a dump.
type Pair struct {
	Key   engine.LumpID
	Value string
}

// StorageHandle wraps one open engine session. Every engine-level
// failure it returns is fatal for the invoking command; the handle does
// not retry or mask I/O errors.
type StorageHandle struct {
	session *engine.Session
	agg     *metrics.Aggregator
}

func New(session *engine.Session, agg *metrics.Aggregator) *StorageHandle {
	return &StorageHandle{session: session, agg: agg}
}

func validValue(value string) bool {
	return utf8.ValidString(value) && !strings.ContainsRune(value, 0)
}

// Put stores value under key. The returned bool is true when the key
// was newly inserted, false when an existing value was overwritten.
func (h *StorageHandle) Put(key engine.LumpID, value string) (bool, error) {
	if !validValue(value) {
		return false, ErrInvalidValue
	}
	return h.session.Put(key, []byte(value))
}

// Get returns the value stored under key, if any.
func (h *StorageHandle) Get(key engine.LumpID) (string, bool, error) {
	data, found, err := h.session.Get(key)
	if err != nil || !found {
		return "", found, err
	}
	return string(data), true, nil
}

// Delete removes key. True means a value existed and was removed.
func (h *StorageHandle) Delete(key engine.LumpID) (bool, error) {
	return h.session.Delete(key)
}

// List enumerates all live keys.
func (h *StorageHandle) List() ([]engine.LumpID, error) {
	return h.session.List()
}

// Dump returns every live key/value pair.
func (h *StorageHandle) Dump() ([]Pair, error) {
	ids, err := h.session.List()
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(ids))
	for _, id := range ids {
		value, found, err := h.Get(id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		pairs = append(pairs, Pair{Key: id, Value: value})
	}
	return pairs, nil
}

// JournalInfo reads the current journal positions and entries.
func (h *StorageHandle) JournalInfo() (engine.JournalSnapshot, error) {
	return h.session.JournalSnapshot()
}

// JournalGC forces a journal sync followed by a full garbage-collection
// pass. Any engine error aborts the invoking command.
func (h *StorageHandle) JournalGC() error {
	if err := h.session.JournalSync(); err != nil {
		return err
	}
	return h.session.JournalGC()
}

// HeaderInfo returns the storage descriptor.
func (h *StorageHandle) HeaderInfo() engine.HeaderInfo {
	return h.session.Header()
}

// Usage reports data-region occupancy.
func (h *StorageHandle) Usage() (used, capacity uint64) {
	return h.session.Usage()
}

// Metrics attempts a non-blocking gather of the metrics aggregator.
// ok=false means the aggregator was busy, not that no metrics exist.
func (h *StorageHandle) Metrics() (text string, ok bool) {
	if h.agg == nil {
		return "", false
	}
	return h.agg.TryGather()
}

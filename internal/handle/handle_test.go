package handle

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumpkv/lumpadm/internal/engine"
	"github.com/lumpkv/lumpadm/internal/metrics"
)

func newTestHandle(t *testing.T) *StorageHandle {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	agg := metrics.NewAggregator()
	session, err := engine.Create(
		filepath.Join(t.TempDir(), "storage"),
		4_000_000, 0.01,
		engine.Options{Logger: log, Metrics: agg},
	)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return New(session, agg)
}

func key(lo uint64) engine.LumpID {
	return engine.NewLumpID(0, lo)
}

func TestOverwriteWorks(t *testing.T) {
	h := newTestHandle(t)

	newlyInserted, err := h.Put(key(0), "hoge")
	require.NoError(t, err)
	assert.True(t, newlyInserted)

	newlyInserted, err = h.Put(key(0), "bar")
	require.NoError(t, err)
	assert.False(t, newlyInserted)

	value, found, err := h.Get(key(0))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bar", value)
}

func TestDeleteWorks(t *testing.T) {
	h := newTestHandle(t)

	_, err := h.Put(key(0), "hoge")
	require.NoError(t, err)

	existed, err := h.Delete(key(0))
	require.NoError(t, err)
	assert.True(t, existed)

	_, found, err := h.Get(key(0))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutRejectsInvalidValues(t *testing.T) {
	h := newTestHandle(t)

	_, err := h.Put(key(1), string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = h.Put(key(1), "a\x00b")
	assert.ErrorIs(t, err, ErrInvalidValue)

	// Nothing must have reached the engine.
	ids, err := h.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDumpReturnsAllPairs(t *testing.T) {
	h := newTestHandle(t)

	_, err := h.Put(key(1), "one")
	require.NoError(t, err)
	_, err = h.Put(key(2), "two")
	require.NoError(t, err)

	pairs, err := h.Dump()
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	values := map[string]string{}
	for _, pair := range pairs {
		values[pair.Key.String()] = pair.Value
	}
	assert.Equal(t, map[string]string{"1": "one", "2": "two"}, values)
}

func TestJournalGCThenInfo(t *testing.T) {
	h := newTestHandle(t)

	_, err := h.Put(key(1), "one")
	require.NoError(t, err)

	require.NoError(t, h.JournalGC())

	snapshot, err := h.JournalInfo()
	require.NoError(t, err)
	assert.Empty(t, snapshot.Entries)
	assert.Equal(t, snapshot.Head, snapshot.Tail)
}

func TestMetricsTryGather(t *testing.T) {
	h := newTestHandle(t)

	_, err := h.Put(key(1), "one")
	require.NoError(t, err)

	text, ok := h.Metrics()
	require.True(t, ok)
	assert.Contains(t, text, "lumpadm_engine_puts_total")
}

func TestMetricsWithoutAggregator(t *testing.T) {
	h := newTestHandle(t)
	h.agg = nil

	_, ok := h.Metrics()
	assert.False(t, ok)
}

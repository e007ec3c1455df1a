package bench

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumpkv/lumpadm/internal/engine"
	"github.com/lumpkv/lumpadm/internal/testutil"
)

func testOptions() engine.Options {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return engine.Options{Logger: log}
}

func TestSizeForManySmallRecords(t *testing.T) {
	// 1000 records of 64 bytes: one percent of the capacity would give
	// each record far less than 256 bytes of journal, so the ratio is
	// raised.
	capacity, ratio := SizeFor(1000, 64)
	assert.Equal(t, uint64(128_000), capacity)
	assert.InDelta(t, 2.0, ratio, 1e-9)

	journalReservation := uint64(float64(capacity) * ratio)
	assert.GreaterOrEqual(t, journalReservation, uint64(256*1000))
}

func TestSizeForFewLargeRecords(t *testing.T) {
	capacity, ratio := SizeFor(10, 100_000)
	assert.Equal(t, uint64(2_000_000), capacity)
	assert.InDelta(t, 0.01, ratio, 1e-9)
}

func TestSizeDerivation(t *testing.T) {
	for _, tc := range []struct{ count, size uint64 }{
		{1, 1}, {100, 512}, {1000, 64}, {7, 8192},
	} {
		capacity, ratio := SizeFor(tc.count, tc.size)
		assert.Equal(t, 2*tc.count*tc.size, capacity)
		assert.GreaterOrEqual(t,
			uint64(float64(capacity)*ratio),
			uint64(256*tc.count),
			"count=%d size=%d", tc.count, tc.size)
	}
}

func TestRunWriteReportsTotals(t *testing.T) {
	session, total, err := CreateStorage(
		filepath.Join(t.TempDir(), "bench"), 50, 32, testOptions())
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, uint64(50*32), total)

	result, err := RunWrite(session, 50, 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(50*32), result.TotalBytes)
	assert.Greater(t, result.Elapsed, time.Duration(0))
	assert.Contains(t, result.String(), "total = 1600Byte")

	ids, err := session.List()
	require.NoError(t, err)
	assert.Len(t, ids, 50)
}

func TestRunWriteReadMarchingWindow(t *testing.T) {
	// 250 records: two full windows are read back, the trailing partial
	// window is not.
	session, _, err := CreateStorage(
		filepath.Join(t.TempDir(), "bench"), 250, 16, testOptions())
	require.NoError(t, err)
	defer session.Close()

	result, err := RunWriteRead(session, 250, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(250*16), result.TotalBytes)

	ids, err := session.List()
	require.NoError(t, err)
	assert.Len(t, ids, 250)
}

func TestCreateStorageValidatesArguments(t *testing.T) {
	_, _, err := CreateStorage(filepath.Join(t.TempDir(), "bench"), 0, 64, testOptions())
	assert.Error(t, err)

	_, _, err = CreateStorage(filepath.Join(t.TempDir(), "bench"), 64, 0, testOptions())
	assert.Error(t, err)
}

func TestRunWriteThousandSmallRecords(t *testing.T) {
	testutil.RequireLong(t)

	session, _, err := CreateStorage(
		filepath.Join(t.TempDir(), "bench"), 1000, 64, testOptions())
	require.NoError(t, err)
	defer session.Close()

	result, err := RunWrite(session, 1000, 64)
	require.NoError(t, err)
	assert.Equal(t, uint64(64_000), result.TotalBytes)
}

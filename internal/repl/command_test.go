package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumpkv/lumpadm/internal/engine"
)

func mustID(t *testing.T, s string) engine.LumpID {
	t.Helper()
	id, err := engine.ParseLumpID(s)
	require.NoError(t, err)
	return id
}

func TestParsePut(t *testing.T) {
	cmd := Parse("put 42 hello world")
	assert.Equal(t, KindPut, cmd.Kind)
	assert.Equal(t, mustID(t, "42"), cmd.Key)
	assert.Equal(t, "hello world", cmd.Value)
}

func TestParsePutExtraWhitespace(t *testing.T) {
	cmd := Parse("put  7\tspaced   value")
	assert.Equal(t, KindPut, cmd.Kind)
	assert.Equal(t, mustID(t, "7"), cmd.Key)
	assert.Equal(t, "spaced   value", cmd.Value)
}

func TestParseGetAndDelete(t *testing.T) {
	cmd := Parse("get 999")
	assert.Equal(t, KindGet, cmd.Kind)
	assert.Equal(t, mustID(t, "999"), cmd.Key)

	cmd = Parse("delete 7")
	assert.Equal(t, KindDelete, cmd.Kind)
	assert.Equal(t, mustID(t, "7"), cmd.Key)
}

func TestParseLiterals(t *testing.T) {
	literals := map[string]Kind{
		"list":                  KindList,
		"dump":                  KindDump,
		"header":                KindHeader,
		"journal":               KindJournal,
		"journal_gc":            KindJournalGC,
		"metrics":               KindMetrics,
		"finish_metrics_server": KindFinishMetricsServer,
	}
	for line, kind := range literals {
		assert.Equal(t, kind, Parse(line).Kind, "line %q", line)
	}
}

func TestParseStartMetricsServer(t *testing.T) {
	cmd := Parse("start_metrics_server 9100")
	assert.Equal(t, KindStartMetricsServer, cmd.Kind)
	assert.Equal(t, uint16(9100), cmd.Port)

	// Bare form leaves the port to the executor's default.
	cmd = Parse("start_metrics_server")
	assert.Equal(t, KindStartMetricsServer, cmd.Kind)
	assert.Zero(t, cmd.Port)
}

func TestParseInvalid(t *testing.T) {
	invalid := []string{
		"frobnicate",
		"put 1",
		"put 1 ",
		"put abc value",
		"put -1 value",
		"get",
		"get 1 2",
		"get abc",
		"delete",
		"start_metrics_server 70000",
		"start_metrics_server 8080 extra",
		"put 340282366920938463463374607431768211456 too big",
		"LIST",
		" list",
	}
	for _, line := range invalid {
		cmd := Parse(line)
		assert.Equal(t, KindInvalid, cmd.Kind, "line %q", line)
		assert.Equal(t, line, cmd.Raw)
	}
}

func TestParseRejectsNULInValue(t *testing.T) {
	assert.Equal(t, KindInvalid, Parse("put 1 a\x00b").Kind)
}

package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLumpID(t *testing.T) {
	id, err := ParseLumpID("42")
	require.NoError(t, err)
	assert.Equal(t, "42", id.String())

	id, err = ParseLumpID("0")
	require.NoError(t, err)
	assert.Equal(t, "0", id.String())

	// Largest value that still fits in 128 bits.
	id, err = ParseLumpID("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", id.String())

	_, err = ParseLumpID("340282366920938463463374607431768211456")
	assert.Error(t, err)

	_, err = ParseLumpID("abc")
	assert.Error(t, err)

	_, err = ParseLumpID("-1")
	assert.Error(t, err)

	_, err = ParseLumpID("")
	assert.Error(t, err)
}

func TestNewLumpID(t *testing.T) {
	assert.Equal(t, "7", NewLumpID(0, 7).String())
	// The high half is worth 2^64.
	assert.Equal(t, "18446744073709551616", NewLumpID(1, 0).String())
}

func TestLumpIDJSON(t *testing.T) {
	id := NewLumpID(0, 42)

	encoded, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(encoded))

	var decoded LumpID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, id, decoded)
}

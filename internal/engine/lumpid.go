package engine

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// LumpID identifies one stored record. It is a 128-bit unsigned integer
// kept in big-endian byte order so that the raw bytes sort numerically.
type LumpID [16]byte

// NewLumpID builds a LumpID from the high and low 64-bit halves.
func NewLumpID(hi, lo uint64) LumpID {
	var id LumpID
	binary.BigEndian.PutUint64(id[:8], hi)
	binary.BigEndian.PutUint64(id[8:], lo)
	return id
}

var lumpIDLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// ParseLumpID parses a non-negative decimal string. The value must fit
// in 128 bits.
func ParseLumpID(s string) (LumpID, error) {
	var id LumpID
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return id, fmt.Errorf("invalid lump id %q", s)
	}
	if n.Cmp(lumpIDLimit) >= 0 {
		return id, fmt.Errorf("lump id %q does not fit in 128 bits", s)
	}
	n.FillBytes(id[:])
	return id, nil
}

func (id LumpID) String() string {
	return new(big.Int).SetBytes(id[:]).String()
}

// MarshalJSON renders the id as a decimal string so journal entries
// stay readable in dumps.
func (id LumpID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *LumpID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid lump id literal %s", data)
	}
	parsed, err := ParseLumpID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

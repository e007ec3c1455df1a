package engine

import "github.com/google/uuid"

// BlockSize is the minimum addressable unit of the storage. Region
// sizes are always rounded up to a multiple of it.
const BlockSize = 512

// HeaderInfo describes one storage instance. It is written when the
// storage is created and never changes afterwards.
type HeaderInfo struct {
	MajorVersion      uint16    `json:"major_version"`
	MinorVersion      uint16    `json:"minor_version"`
	BlockSize         uint16    `json:"block_size"`
	InstanceUUID      uuid.UUID `json:"instance_uuid"`
	JournalRegionSize uint64    `json:"journal_region_size"`
	DataRegionSize    uint64    `json:"data_region_size"`
}

// HeaderRegionSize returns the size of the header region itself.
func (h HeaderInfo) HeaderRegionSize() uint64 {
	return uint64(h.BlockSize)
}

// StorageSize returns the total reserved size of the storage: header,
// journal and data regions together.
func (h HeaderInfo) StorageSize() uint64 {
	return h.HeaderRegionSize() + h.JournalRegionSize + h.DataRegionSize
}

func ceilAlign(n uint64) uint64 {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

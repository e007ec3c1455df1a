package handle

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ulikunitz/xz"
)

// DumpToFile writes every key/value pair to path as xz-compressed text,
// one "key<TAB>value" line per lump. Values never contain NUL or
// invalid UTF-8, so the format is unambiguous apart from embedded
// newlines, which are escaped.
func (h *StorageHandle) DumpToFile(path string) error {
	pairs, err := h.Dump()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump to %s: %w", path, err)
	}
	defer file.Close()

	compressor, err := xz.NewWriter(file)
	if err != nil {
		return fmt.Errorf("dump to %s: %w", path, err)
	}

	writer := bufio.NewWriter(compressor)
	for _, pair := range pairs {
		if _, err := fmt.Fprintf(writer, "%s\t%q\n", pair.Key, pair.Value); err != nil {
			return fmt.Errorf("dump to %s: %w", path, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("dump to %s: %w", path, err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("dump to %s: %w", path, err)
	}
	return file.Close()
}

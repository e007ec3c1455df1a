package repl

import (
	"errors"
	"fmt"
	"io"

	"github.com/lumpkv/lumpadm/internal/engine"
	"github.com/lumpkv/lumpadm/internal/handle"
	"github.com/lumpkv/lumpadm/internal/metrics"
)

// Executor runs parsed commands against the storage handle and prints
// their results. The one-shot CLI reuses it so interactive and
// non-interactive invocations report identically.
//
// A returned error is fatal for the invoking command: engine-level
// failures are never retried or masked here. Bad input and metrics
// contention are reported on out and are not errors.
type Executor struct {
	handle  *handle.StorageHandle
	metrics *metrics.ServerController
	out     io.Writer

	// DefaultMetricsPort is used when start_metrics_server names no
	// port.
	DefaultMetricsPort uint16
}

func NewExecutor(h *handle.StorageHandle, mc *metrics.ServerController, out io.Writer) *Executor {
	return &Executor{
		handle:             h,
		metrics:            mc,
		out:                out,
		DefaultMetricsPort: metrics.DefaultPort,
	}
}

func (e *Executor) Execute(cmd Command) error {
	switch cmd.Kind {
	case KindPut:
		return e.put(cmd.Key, cmd.Value)
	case KindGet:
		return e.get(cmd.Key)
	case KindDelete:
		return e.delete(cmd.Key)
	case KindList:
		return e.list()
	case KindDump:
		return e.dump()
	case KindHeader:
		e.header()
		return nil
	case KindJournal:
		return e.journal()
	case KindJournalGC:
		return e.journalGC()
	case KindMetrics:
		e.printMetrics()
		return nil
	case KindStartMetricsServer:
		port := cmd.Port
		if port == 0 {
			port = e.DefaultMetricsPort
		}
		if err := e.metrics.Start(port); err != nil {
			fmt.Fprintf(e.out, "could not start the metrics server: %v\n", err)
		}
		return nil
	case KindFinishMetricsServer:
		e.metrics.Stop()
		return nil
	default:
		fmt.Fprintf(e.out, "`%s` is an invalid command\n", cmd.Raw)
		return nil
	}
}

func (e *Executor) put(key engine.LumpID, value string) error {
	newlyInserted, err := e.handle.Put(key, value)
	if errors.Is(err, handle.ErrInvalidValue) {
		fmt.Fprintf(e.out, "value %q is not valid UTF-8 text\n", value)
		return nil
	}
	if err != nil {
		return err
	}
	if newlyInserted {
		fmt.Fprintf(e.out, "[new] put key=%s, value=%s\n", key, value)
	} else {
		fmt.Fprintf(e.out, "[overwrite] put key=%s, value=%s\n", key, value)
	}
	return nil
}

func (e *Executor) get(key engine.LumpID) error {
	value, found, err := e.handle.Get(key)
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintf(e.out, "get => %q\n", value)
	} else {
		fmt.Fprintf(e.out, "no entry for key %s\n", key)
	}
	return nil
}

func (e *Executor) delete(key engine.LumpID) error {
	existed, err := e.handle.Delete(key)
	if err != nil {
		return err
	}
	if existed {
		fmt.Fprintf(e.out, "deleted key=%s\n", key)
	} else {
		fmt.Fprintf(e.out, "no entry for key %s\n", key)
	}
	return nil
}

func (e *Executor) list() error {
	ids, err := e.handle.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(e.out, "there are no lumps")
		return nil
	}
	fmt.Fprintln(e.out, "<lump id list>")
	for _, id := range ids {
		fmt.Fprintln(e.out, id)
	}
	fmt.Fprintln(e.out, "</lump id list>")
	return nil
}

func (e *Executor) dump() error {
	pairs, err := e.handle.Dump()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Fprintln(e.out, "there are no lumps")
		return nil
	}
	fmt.Fprintln(e.out, "<lump list>")
	for _, pair := range pairs {
		fmt.Fprintf(e.out, "key=%s, value=%q\n", pair.Key, pair.Value)
	}
	fmt.Fprintln(e.out, "</lump list>")
	return nil
}

func (e *Executor) header() {
	info := e.handle.HeaderInfo()
	used, capacity := e.handle.Usage()
	fmt.Fprintln(e.out, "header =>")
	fmt.Fprintf(e.out, "  major version = %d\n", info.MajorVersion)
	fmt.Fprintf(e.out, "  minor version = %d\n", info.MinorVersion)
	fmt.Fprintf(e.out, "  block size = %d\n", info.BlockSize)
	fmt.Fprintf(e.out, "  uuid = %s\n", info.InstanceUUID)
	fmt.Fprintf(e.out, "  journal region size = %d\n", info.JournalRegionSize)
	fmt.Fprintf(e.out, "  data region size = %d\n", info.DataRegionSize)
	fmt.Fprintf(e.out, "  data region used = %d\n", used)
	fmt.Fprintf(e.out, "  data region capacity = %d\n", capacity)
	fmt.Fprintf(e.out, "  storage header size = %d\n", info.HeaderRegionSize())
	fmt.Fprintf(e.out, "  storage total size = %d\n", info.StorageSize())
}

func (e *Executor) journal() error {
	snapshot, err := e.handle.JournalInfo()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "journal [unreleased head] position = %d\n", snapshot.UnreleasedHead)
	fmt.Fprintf(e.out, "journal [head] position = %d\n", snapshot.Head)
	fmt.Fprintf(e.out, "journal [tail] position = %d\n", snapshot.Tail)
	if len(snapshot.Entries) == 0 {
		fmt.Fprintln(e.out, "there are no journal entries")
		return nil
	}
	fmt.Fprintln(e.out, "<journal entries>")
	for _, entry := range snapshot.Entries {
		fmt.Fprintf(e.out, "position=%d, op=%s, key=%s, size=%d\n",
			entry.Position, entry.Op, entry.LumpID, entry.Size)
	}
	fmt.Fprintln(e.out, "</journal entries>")
	return nil
}

func (e *Executor) journalGC() error {
	fmt.Fprintln(e.out, "run journal full GC ...")
	if err := e.handle.JournalGC(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "journal full GC succeeded")
	return nil
}

func (e *Executor) printMetrics() {
	text, ok := e.handle.Metrics()
	if !ok {
		fmt.Fprintln(e.out, "failed to get metrics data")
		return
	}
	fmt.Fprintln(e.out, "<metrics>")
	fmt.Fprint(e.out, text)
	fmt.Fprintln(e.out, "</metrics>")
}

// lumpadm is the administrative and benchmarking front-end for a
// block-addressed lump storage. It offers one-shot subcommands plus an
// interactive session (Open) against an existing storage.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lumpkv/lumpadm/internal/bench"
	"github.com/lumpkv/lumpadm/internal/config"
	"github.com/lumpkv/lumpadm/internal/engine"
	"github.com/lumpkv/lumpadm/internal/handle"
	"github.com/lumpkv/lumpadm/internal/metrics"
	"github.com/lumpkv/lumpadm/internal/repl"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lumpadm <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  Create     --storage <path> --capacity <bytes>")
	fmt.Fprintln(os.Stderr, "  Open       --storage <path>")
	fmt.Fprintln(os.Stderr, "  Put        --storage <path> --key <id> --value <text>")
	fmt.Fprintln(os.Stderr, "  Get        --storage <path> --key <id>")
	fmt.Fprintln(os.Stderr, "  Delete     --storage <path> --key <id>")
	fmt.Fprintln(os.Stderr, "  List       --storage <path>")
	fmt.Fprintln(os.Stderr, "  Dump       --storage <path> [--out <file.xz>]")
	fmt.Fprintln(os.Stderr, "  Header     --storage <path>")
	fmt.Fprintln(os.Stderr, "  Journal    --storage <path>")
	fmt.Fprintln(os.Stderr, "  JournalGC  --storage <path>")
	fmt.Fprintln(os.Stderr, "  WBench     --storage <path> --count <n> --size <bytes>")
	fmt.Fprintln(os.Stderr, "  WRBench    --storage <path> --count <n> --size <bytes>")
	fmt.Fprintln(os.Stderr, "  Help")
}

func main() {
	log := logrus.New()

	cfg, err := config.Load(config.DefaultFile)
	if err != nil {
		log.WithError(err).Error("loading configuration")
		os.Exit(1)
	}
	log.SetLevel(cfg.Level())

	if err := run(cfg, log, os.Args[1:]); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// cliFlags carries every flag any subcommand accepts; the per-command
// required-parameter predicates run before anything touches the engine.
type cliFlags struct {
	storage  string
	capacity uint64
	key      string
	value    string
	count    uint64
	size     uint64
	out      string
}

func parseFlags(command string, args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.StringVar(&f.storage, "storage", "", "path to the storage directory")
	fs.Uint64Var(&f.capacity, "capacity", 0, "storage capacity in bytes")
	fs.StringVar(&f.key, "key", "", "lump id (decimal, up to 128 bits)")
	fs.StringVar(&f.value, "value", "", "value to store (UTF-8 text)")
	fs.Uint64Var(&f.count, "count", 0, "number of benchmark records")
	fs.Uint64Var(&f.size, "size", 0, "size of each benchmark record in bytes")
	fs.StringVar(&f.out, "out", "", "write the dump xz-compressed to this file")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.storage == "" {
		return f, errors.New("--storage is required")
	}
	return f, nil
}

var commands = map[string]bool{
	"create": true, "open": true, "put": true, "get": true,
	"delete": true, "list": true, "dump": true, "header": true,
	"journal": true, "journalgc": true, "wbench": true, "wrbench": true,
}

func run(cfg config.Config, log *logrus.Logger, args []string) error {
	if len(args) < 1 {
		usage()
		return errors.New("missing command")
	}
	command := strings.ToLower(args[0])

	// The command name is checked before any flag parsing so that
	// "lumpadm help" and typo'd commands reach the usage text instead
	// of a missing-flag complaint.
	if command == "help" {
		usage()
		return nil
	}
	if !commands[command] {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	f, err := parseFlags(command, args[1:])
	if err != nil {
		return err
	}

	agg := metrics.NewAggregator()
	opts := engine.Options{Logger: log, Metrics: agg, SyncWrites: cfg.SyncWrites}

	switch command {
	case "create":
		if f.capacity == 0 {
			return errors.New("Create requires --capacity")
		}
		return runCreate(f, opts)

	case "open":
		return runOpen(cfg, log, f, agg, opts)

	case "put":
		if f.key == "" || f.value == "" {
			return errors.New("Put requires --key and --value")
		}
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			key, err := engine.ParseLumpID(f.key)
			if err != nil {
				return err
			}
			return ex.Execute(repl.Command{Kind: repl.KindPut, Key: key, Value: f.value})
		})

	case "get", "delete":
		if f.key == "" {
			return fmt.Errorf("%s requires --key", args[0])
		}
		kind := repl.KindGet
		if command == "delete" {
			kind = repl.KindDelete
		}
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			key, err := engine.ParseLumpID(f.key)
			if err != nil {
				return err
			}
			return ex.Execute(repl.Command{Kind: kind, Key: key})
		})

	case "list":
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			return ex.Execute(repl.Command{Kind: repl.KindList})
		})

	case "dump":
		if f.out != "" {
			return runDumpToFile(f, agg, opts)
		}
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			return ex.Execute(repl.Command{Kind: repl.KindDump})
		})

	case "header":
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			return ex.Execute(repl.Command{Kind: repl.KindHeader})
		})

	case "journal":
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			return ex.Execute(repl.Command{Kind: repl.KindJournal})
		})

	case "journalgc":
		return withExecutor(f, agg, opts, func(ex *repl.Executor) error {
			return ex.Execute(repl.Command{Kind: repl.KindJournalGC})
		})

	case "wbench", "wrbench":
		if f.count == 0 || f.size == 0 {
			return fmt.Errorf("%s requires --count and --size", args[0])
		}
		return runBench(command, f, opts)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// withExecutor opens the storage, runs fn against a fresh executor and
// closes the session again. One-shot commands all go through here so
// they print exactly like their interactive counterparts.
func withExecutor(f cliFlags, agg *metrics.Aggregator, opts engine.Options, fn func(*repl.Executor) error) error {
	session, err := engine.Open(f.storage, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	h := handle.New(session, agg)
	controller := metrics.NewServerController(agg, opts.Logger)
	return fn(repl.NewExecutor(h, controller, os.Stdout))
}

// runCreate sizes a new storage from the requested capacity: the data
// region gets the block-aligned capacity, the journal region one header
// block plus a record area of at least two blocks, growing with the
// number of data blocks.
func runCreate(f cliFlags, opts engine.Options) error {
	fmt.Printf("passed data region size = %d\n", f.capacity)

	dataRegionSize := ceilAlign(f.capacity)
	dataBlocks := dataRegionSize / engine.BlockSize

	journalRecordSize := uint64(engine.BlockSize * 2)
	if grown := 20 * dataBlocks; grown > journalRecordSize {
		journalRecordSize = grown
	}
	journalRegionSize := engine.BlockSize + journalRecordSize

	journalRatio := float64(journalRegionSize) / float64(dataRegionSize)
	if journalRatio < 0.01 {
		journalRatio = 0.01
	}

	session, err := engine.Create(f.storage, dataRegionSize, journalRatio, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	header := session.Header()
	fmt.Println("---------------")
	fmt.Printf("actual data region size = %d\n", header.DataRegionSize)
	fmt.Printf("actual journal region size = %d\n", header.JournalRegionSize)
	fmt.Printf("actual journal region size ratio = %v\n",
		float64(header.JournalRegionSize)/float64(header.JournalRegionSize+header.DataRegionSize))
	return nil
}

func runOpen(cfg config.Config, log *logrus.Logger, f cliFlags, agg *metrics.Aggregator, opts engine.Options) error {
	session, err := engine.Open(f.storage, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	h := handle.New(session, agg)
	controller := metrics.NewServerController(agg, log)
	defer func() {
		if _, running := controller.Running(); running {
			controller.Stop()
		}
	}()

	executor := repl.NewExecutor(h, controller, os.Stdout)
	executor.DefaultMetricsPort = cfg.MetricsPort
	return repl.Run(executor, os.Stdout)
}

func runDumpToFile(f cliFlags, agg *metrics.Aggregator, opts engine.Options) error {
	session, err := engine.Open(f.storage, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	h := handle.New(session, agg)
	if err := h.DumpToFile(f.out); err != nil {
		return err
	}
	fmt.Printf("dump written to %s\n", f.out)
	return nil
}

func runBench(command string, f cliFlags, opts engine.Options) error {
	session, _, err := bench.CreateStorage(f.storage, f.count, f.size, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	var result bench.Result
	if command == "wbench" {
		result, err = bench.RunWrite(session, f.count, f.size)
	} else {
		result, err = bench.RunWriteRead(session, f.count, f.size)
	}
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func ceilAlign(n uint64) uint64 {
	return (n + engine.BlockSize - 1) / engine.BlockSize * engine.BlockSize
}

// Package repl implements the interactive session: a structured grammar
// over free-text input lines and the loop that dispatches parsed
// commands against the storage handle.
package repl

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/lumpkv/lumpadm/internal/engine"
)

// Kind enumerates the closed set of interactive commands.
type Kind int

const (
	KindInvalid Kind = iota
	KindPut
	KindGet
	KindDelete
	KindList
	KindDump
	KindHeader
	KindJournal
	KindJournalGC
	KindMetrics
	KindStartMetricsServer
	KindFinishMetricsServer
)

// Command is one parsed input line. Fields beyond Kind are only set for
// the kinds that carry them; Raw always holds the original line.
type Command struct {
	Kind  Kind
	Key   engine.LumpID
	Value string
	Port  uint16
	Raw   string
}

// Parse matches one line against the grammar. Unrecognized input yields
// KindInvalid; the caller reports it and keeps going.
func Parse(line string) Command {
	invalid := Command{Kind: KindInvalid, Raw: line}

	switch line {
	case "list":
		return Command{Kind: KindList, Raw: line}
	case "dump":
		return Command{Kind: KindDump, Raw: line}
	case "header":
		return Command{Kind: KindHeader, Raw: line}
	case "journal":
		return Command{Kind: KindJournal, Raw: line}
	case "journal_gc":
		return Command{Kind: KindJournalGC, Raw: line}
	case "metrics":
		return Command{Kind: KindMetrics, Raw: line}
	case "start_metrics_server":
		// Port 0 means "use the configured default"; the executor
		// resolves it.
		return Command{Kind: KindStartMetricsServer, Raw: line}
	case "finish_metrics_server":
		return Command{Kind: KindFinishMetricsServer, Raw: line}
	}

	verb, rest := cutWord(line)
	switch verb {
	case "put":
		// The value is greedy to the end of the line; spaces inside it
		// are part of the value. NUL bytes are never accepted.
		keyToken, value := cutWord(rest)
		if keyToken == "" || value == "" || strings.ContainsRune(value, 0) {
			return invalid
		}
		key, err := engine.ParseLumpID(keyToken)
		if err != nil {
			return invalid
		}
		return Command{Kind: KindPut, Key: key, Value: value, Raw: line}

	case "get", "delete":
		keyToken, tail := cutWord(rest)
		if keyToken == "" || tail != "" {
			return invalid
		}
		key, err := engine.ParseLumpID(keyToken)
		if err != nil {
			return invalid
		}
		kind := KindGet
		if verb == "delete" {
			kind = KindDelete
		}
		return Command{Kind: kind, Key: key, Raw: line}

	case "start_metrics_server":
		portToken, tail := cutWord(rest)
		if portToken == "" || tail != "" {
			return invalid
		}
		port, err := strconv.ParseUint(portToken, 10, 16)
		if err != nil {
			return invalid
		}
		return Command{Kind: KindStartMetricsServer, Port: uint16(port), Raw: line}
	}

	return invalid
}

// cutWord splits the first whitespace-delimited word off s and returns
// it together with the remainder, leading whitespace stripped.
func cutWord(s string) (word, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

package repl

import (
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// Run reads lines until interrupt or end-of-input, parses each against
// the grammar and executes it. Unrecognized lines are reported and the
// loop continues; an engine-level failure aborts the loop with that
// error. Returning nil means the session ended cleanly.
func Run(executor *Executor, out io.Writer) error {
	rl, err := readline.New(">> ")
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		switch err {
		case nil:
		case readline.ErrInterrupt:
			fmt.Fprintln(out, "interrupted")
			return nil
		case io.EOF:
			return nil
		default:
			return fmt.Errorf("repl: %w", err)
		}

		if line == "" {
			continue
		}
		if err := executor.Execute(Parse(line)); err != nil {
			return err
		}
	}
}

// Package testutil gates the heavier benchmark tests behind a flag.
package testutil

import (
	"flag"
	"testing"
)

var runLong = flag.Bool("long", false, "run long/heavy tests")

// RequireLong skips t unless the -long flag was given.
func RequireLong(t *testing.T) {
	t.Helper()
	if !*runLong {
		t.Skip("skipping long test (use -long to enable)")
	}
}

package eht

import (
	"fmt"
	"io"
	"os"
)

// DebugOn is set by EHT_DEBUG=1 and turns on verbose stage diagnostics.
var DebugOn = os.Getenv("EHT_DEBUG") == "1"

// Dbg prints when debugging is enabled.
func Dbg(w io.Writer, f string, a ...any) {
	if DebugOn {
		fmt.Fprintf(w, f, a...)
	}
}

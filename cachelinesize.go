package ptab

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the padding unit used throughout the table to keep the
// volatile counters block and the read-only slot arrays off each other's
// cache lines. It is derived automatically from the target platform via
// golang.org/x/sys/cpu rather than hard-coded, since the spec treats
// platform cache-line detection as an external, compile-time concern.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

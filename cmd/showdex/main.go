// Showdex - battle suggestions for Pokémon Showdown.
// Optimized for minimal resource usage.
package main

import (
	"runtime/debug"
)

func init() {
	// GC runs more often and the heap stays small; the service mostly
	// waits on the network.
	debug.SetGCPercent(50)
	debug.SetMemoryLimit(64 * 1024 * 1024)
}

func main() {
	Execute()
}

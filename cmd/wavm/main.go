// Command wavm is the external CLI wrapper around the wavmgo core: it
// reads and writes WebAssembly text and binary files by calling the
// parse/validate/print/decode/encode entry points in internal/wasm,
// internal/wasm/text, and internal/wasm/binary. The CLI itself - flag
// parsing, file I/O, logging - is not part of the core (spec.md §1 lists
// "CLI front-ends" as an external collaborator).
package main

import "os"

func main() {
	os.Exit(run())
}

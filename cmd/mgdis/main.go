// Command mgdis disassembles a compiled Midgard binary.
//
// Usage:
//
//	mgdis <input.bin>
//
// The output is best-effort: unknown words and set reserved bits are
// surfaced as comments rather than errors.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gogpu/midgard/disasm"
)

var output = flag.String("o", "", "output file (default: stdout)")

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	code, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if len(code)%16 != 0 {
		fmt.Fprintf(os.Stderr, "Error: %s is %d bytes, not a whole number of quadwords\n", args[0], len(code))
		os.Exit(1)
	}

	text := disasm.Disassemble(code)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(text), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Print(text)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: mgdis [options] <input.bin>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

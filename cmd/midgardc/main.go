// Command midgardc compiles a textual IR description into a Midgard
// shader binary.
//
// Usage:
//
//	midgardc [options] <input.mir>
//
// Examples:
//
//	midgardc shader.mir                  # Compile to stdout
//	midgardc -o shader.bin shader.mir    # Compile to file
//	midgardc -S shader.mir               # Print disassembly instead
//	midgardc -v mir,disasm shader.mir    # Enable pass dumps
//
// The input is a line-oriented description of the compiler's input IR:
//
//	stage fragment
//
//	load_input %0 base 0
//	fmul %1 %0 %0.xxxx
//	store_output %1 base 0
//
// Values are %N for SSA definitions and rN for mutable registers. A
// .xyzw style suffix is a swizzle on sources and a write mask on
// destinations. Constants take four components, as 0x-prefixed or
// decimal integers, or floats when they contain a dot:
//
//	const %2 1.0 0.5 0 0x3F800000
//
// Control flow nests with braces:
//
//	if %3 {
//	  discard
//	} else {
//	  loop {
//	    break
//	  }
//	}
//
// Textures read a coordinate and name their bindings:
//
//	tex2d %4 %1 texture 0 sampler 1
package main

import (
	"flag"
	"fmt"
	"os"

	"tlog.app/go/tlog"

	"github.com/gogpu/midgard"
	"github.com/gogpu/midgard/disasm"
)

var (
	output    = flag.String("o", "", "output file (default: stdout)")
	dis       = flag.Bool("S", false, "print disassembly instead of writing the binary")
	blend     = flag.Bool("blend", false, "compile a blend shader")
	alphaRef  = flag.Float64("alpha-ref", 0, "alpha test reference value")
	cutoff    = flag.Int("cutoff", 8, "uniform slots pushed into registers")
	verbosity = flag.String("v", "", "debug dump topics (nir,mir,disasm)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *verbosity != "" {
		tlog.SetVerbosity(*verbosity)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	inputPath := args[0]

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	module, err := parse(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", inputPath, err)
		os.Exit(1)
	}

	opts := midgard.DefaultOptions()
	opts.IsBlend = *blend
	opts.AlphaRef = float32(*alphaRef)
	opts.UniformCutoff = *cutoff

	prog, err := midgard.Compile(module, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		os.Exit(1)
	}

	if *dis {
		writeOut([]byte(disassembly(prog)))
		return
	}

	writeOut(prog.Compiled)

	if *output != "" {
		fmt.Printf("Compiled %s to %s (%d bytes, %d work registers)\n",
			inputPath, *output, len(prog.Compiled), prog.WorkRegisterCount)
	}
}

func writeOut(data []byte) {
	if *output != "" {
		if err := os.WriteFile(*output, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if _, err := os.Stdout.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: midgardc [options] <input.mir>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  midgardc shader.mir               Compile to stdout\n")
	fmt.Fprintf(os.Stderr, "  midgardc -o shader.bin shader.mir Compile to file\n")
	fmt.Fprintf(os.Stderr, "  midgardc -S shader.mir            Print disassembly\n")
}

func disassembly(prog *midgard.Program) string {
	return fmt.Sprintf("# first tag %v, %d work registers\n%s",
		prog.FirstTag, prog.WorkRegisterCount, disasm.Disassemble(prog.Compiled))
}

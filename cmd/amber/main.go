// Package main implements the amber backtrace demo CLI.
//
// The amber tool runs scripted scenarios against the backtrace engine
// using the in-memory test runtime. It exists to make the engine's
// observable behavior easy to poke at from a terminal:
//
//  1. Building a scripted call stack (interpreted and inlined frames)
//  2. Capturing a backtrace with a chosen policy
//  3. Materializing and printing the result
//
// Usage:
//
//	amber demo       # capture and print a scripted throw
//	amber redefine   # show trace degradation after class redefinition
//	amber version    # show version information
//
// This is the CLI entry point; the engine itself lives under
// internal/backtrace and is consumed by the embedding runtime through
// the backtrace package.
package main

import (
	"fmt"
	"os"

	"github.com/hseigel/amber/backtrace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "demo":
		demoCommand(os.Args[2:])
	case "redefine":
		redefineCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("amber backtrace engine version %s\n", backtrace.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`amber - Amber VM backtrace engine demo tool

USAGE:
    amber <command> [arguments]

COMMANDS:
    demo       Capture and print a scripted throw
    redefine   Capture, redefine the class, print the degraded trace
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Capture a deep scripted stack, truncated at 8 frames
    amber demo -max-depth 8

    # Include hidden (synthetic) frames in the trace
    amber demo -show-hidden

    # Show compiled-code annotations and capture logging
    amber demo -verbose -debug

ABOUT:
    amber exercises the exception backtrace engine of the Amber VM: the
    component that records the calling sequence of executing methods
    when an exception is raised and later reconstructs it into a
    structured stack trace.

    The demo scenarios run against an in-memory scripted runtime, so the
    tool shows exactly what the engine records and renders - elision of
    the exception machinery's own frames, hidden-frame suppression,
    chunked growth for deep stacks, and redefinition-safe degradation -
    without needing a running interpreter.

FOR MORE INFORMATION:
    Repository: https://github.com/hseigel/amber
`)
}

package main

import "fmt"

func modeCommandLabel(mode executionMode) string {
	switch mode {
	case modeCheck:
		return "gpl check"
	default:
		return "gpl run"
	}
}

func printUsage() {
	fmt.Fprintln(stderr, "Usage:")
	fmt.Fprintln(stderr, "  gpl [options] run [program.yml]")
	fmt.Fprintln(stderr, "  gpl [options] <program.yml>")
	fmt.Fprintln(stderr, "  gpl [options] check [program.yml]")
	fmt.Fprintln(stderr, "  gpl [options] fetch")
	fmt.Fprintln(stderr, "  gpl version")
	fmt.Fprintln(stderr, "")
	fmt.Fprintln(stderr, "Options:")
	fmt.Fprintln(stderr, "  --exec-mode=serial|goroutine   how behaviors are run (default serial)")
	fmt.Fprintln(stderr, "  --log-level=LEVEL              trace, debug, info, warn or error (default warn)")
	fmt.Fprintln(stderr, "  --frames=N                     stop after N frames (0 runs until exit or ctrl-c)")
	fmt.Fprintln(stderr, "  --fps=RATE                     frames per second")
	fmt.Fprintln(stderr, "  --seed=N                       seed for random")
	fmt.Fprintln(stderr, "  --dump-symbols                 print every symbol after check, or to stderr after run")
	fmt.Fprintln(stderr, "")
	fmt.Fprintln(stderr, "Without a program argument the nearest gpl.yml selects the program.")
}

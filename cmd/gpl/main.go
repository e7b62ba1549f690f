package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const cliToolVersion = "gpl 0.1.0-dev"

var errManifestNotFound = errors.New("gpl.yml not found")

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type executionMode int

const (
	modeRun executionMode = iota
	modeCheck
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	opts, remaining, err := parseOptions(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(remaining) == 0 {
		printUsage()
		return 1
	}

	switch remaining[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(remaining[1:], opts, modeRun)
	case "check":
		return runEntry(remaining[1:], opts, modeCheck)
	case "fetch":
		return runFetch(remaining[1:], opts)
	default:
		return runEntry(remaining, opts, modeRun)
	}
}

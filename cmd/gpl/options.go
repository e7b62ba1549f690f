package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iam1me/gpl/pkg/interpreter"
	"github.com/rs/zerolog"
)

// options holds the global flags. Pointer fields are nil when the flag was
// not given, so the manifest value applies.
type options struct {
	execMode *string
	logLevel zerolog.Level
	frames   *int
	fps      *float64
	seed     *uint64
	// dumpSymbols prints the symbol table once the program is loaded (check)
	// or has terminated (run).
	dumpSymbols bool
}

var optionNames = []string{"exec-mode", "log-level", "frames", "fps", "seed"}

func parseOptions(args []string) (options, []string, error) {
	opts := options{logLevel: zerolog.WarnLevel}
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i+1:]...)
			break
		}
		if arg == "--dump-symbols" {
			opts.dumpSymbols = true
			continue
		}
		name, value, hasValue, ok := splitOption(arg)
		if !ok {
			remaining = append(remaining, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return opts, nil, fmt.Errorf("--%s expects a value", name)
			}
			value = args[i+1]
			i++
		}
		if err := opts.set(name, value); err != nil {
			return opts, nil, err
		}
	}
	return opts, remaining, nil
}

func splitOption(arg string) (name, value string, hasValue, ok bool) {
	for _, n := range optionNames {
		switch {
		case arg == "--"+n:
			return n, "", false, true
		case strings.HasPrefix(arg, "--"+n+"="):
			return n, strings.TrimPrefix(arg, "--"+n+"="), true, true
		}
	}
	return "", "", false, false
}

func (o *options) set(name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("--%s expects a value", name)
	}
	switch name {
	case "exec-mode":
		mode := strings.ToLower(value)
		if _, err := interpreter.ParseExecMode(mode); err != nil {
			return fmt.Errorf("unknown --exec-mode value '%s' (expected serial or goroutine)", value)
		}
		o.execMode = &mode
	case "log-level":
		level, err := zerolog.ParseLevel(strings.ToLower(value))
		if err != nil || level == zerolog.NoLevel {
			return fmt.Errorf("unknown --log-level value '%s'", value)
		}
		o.logLevel = level
	case "frames":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("--frames expects a non-negative integer, got '%s'", value)
		}
		o.frames = &n
	case "fps":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			return fmt.Errorf("--fps expects a positive number, got '%s'", value)
		}
		o.fps = &rate
	case "seed":
		seed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("--seed expects an unsigned integer, got '%s'", value)
		}
		o.seed = &seed
	}
	return nil
}

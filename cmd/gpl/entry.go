package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/iam1me/gpl/pkg/diagnostics"
	"github.com/iam1me/gpl/pkg/driver"
	"github.com/iam1me/gpl/pkg/interpreter"
	"github.com/rs/zerolog"
)

// runConfig is the manifest merged with the command line flags.
type runConfig struct {
	execMode string
	frames   driver.FrameSpec
	seed     uint64
	keys     map[rune]interpreter.Keystroke
}

func newRunConfig(manifest *driver.Manifest, opts options) runConfig {
	cfg := runConfig{frames: driver.FrameSpec{Rate: driver.DefaultFrameRate}}
	if manifest != nil {
		cfg.execMode = manifest.ExecMode
		cfg.frames = manifest.Frames
		cfg.seed = manifest.Seed
		cfg.keys = manifest.Keys
	}
	if opts.execMode != nil {
		cfg.execMode = *opts.execMode
	}
	if opts.frames != nil {
		cfg.frames.Limit = *opts.frames
	}
	if opts.fps != nil {
		cfg.frames.Rate = *opts.fps
	}
	if opts.seed != nil {
		cfg.seed = *opts.seed
	} else if cfg.seed == 0 {
		cfg.seed = uint64(time.Now().UnixNano())
	}
	return cfg
}

func newLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func loadManifestFrom(dir string) (*driver.Manifest, error) {
	path, err := driver.LocateManifest(dir)
	if err != nil {
		return nil, errManifestNotFound
	}
	return driver.LoadManifest(path)
}

func runEntry(args []string, opts options, mode executionMode) int {
	if len(args) > 1 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}
	logger := newLogger(opts.logLevel)

	if len(args) == 1 {
		entry := args[0]
		var manifest *driver.Manifest
		if abs, err := filepath.Abs(entry); err == nil {
			m, err := loadManifestFrom(filepath.Dir(abs))
			switch {
			case err == nil:
				manifest = m
			case !errors.Is(err, errManifestNotFound):
				fmt.Fprintf(stderr, "warning: unable to load manifest (%v); running %s without it\n", err, entry)
			}
		}
		return executeEntry(entry, manifest, opts, mode, logger)
	}

	manifest, err := loadManifestFrom(".")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			fmt.Fprintf(stderr, "%s requires a program file (%s not found)\n", modeCommandLabel(mode), driver.ManifestName)
			return 1
		}
		fmt.Fprintf(stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	entry := manifest.ProgramPath()
	if manifest.Source != nil {
		fetched, err := driver.NewGitFetcher(driver.DefaultCacheDir(), logger).Fetch(manifest.Source)
		if err != nil {
			fmt.Fprintf(stderr, "failed to fetch program: %v\n", err)
			return 1
		}
		entry = fetched.Path
	}
	return executeEntry(entry, manifest, opts, mode, logger)
}

func executeEntry(entry string, manifest *driver.Manifest, opts options, mode executionMode, logger zerolog.Logger) int {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		fmt.Fprintf(stderr, "%s requires a program file\n", modeCommandLabel(mode))
		return 1
	}
	cfg := newRunConfig(manifest, opts)

	newExecutor, err := interpreter.ParseExecMode(cfg.execMode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	reports := &diagnostics.Collector{}
	env := interpreter.NewEnv(stdout, diagnostics.Tee{diagnostics.NewLogReporter(logger), reports}, cfg.seed)
	sched := interpreter.NewScheduler(env, newExecutor(), logger)
	defer sched.Close()

	program, err := driver.LoadProgram(entry, sched)
	if err != nil {
		var list diagnostics.ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				fmt.Fprintf(stderr, "%s: %v\n", entry, e)
			}
			return 1
		}
		fmt.Fprintf(stderr, "failed to load program: %v\n", err)
		return 1
	}

	if mode == modeCheck {
		if opts.dumpSymbols {
			if err := dumpProgram(stdout, program); err != nil {
				fmt.Fprintf(stderr, "dump symbols: %v\n", err)
				return 1
			}
		}
		fmt.Fprintln(stdout, "check: ok")
		return 0
	}
	status := runProgram(program, cfg, logger)
	if n := reports.Len(); n > 0 {
		logger.Warn().Int("count", n).Msg("run-time errors reported")
	}
	if opts.dumpSymbols {
		if err := dumpProgram(stderr, program); err != nil {
			logger.Warn().Err(err).Msg("dump symbols")
		}
	}
	return status
}

// dumpProgram writes the symbol table followed by the keys that have
// handlers.
func dumpProgram(w io.Writer, program *interpreter.Program) error {
	if err := program.Table.Dump(w); err != nil {
		return err
	}
	keys := program.Events.Keys()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	_, err := fmt.Fprintf(w, "handlers: %s\n", strings.Join(names, " "))
	return err
}

func runProgram(program *interpreter.Program, cfg runConfig, logger zerolog.Logger) int {
	if err := program.Initialize(); err != nil {
		return exitStatus(err, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader := driver.NewKeyReader(stdin, cfg.keys, logger)
	reader.OnInterrupt(stop)
	keys, err := reader.Start(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("keyboard unavailable")
		keys = nil
	}
	frames := driver.NewFrameDriver(program, cfg.frames, logger)
	err = frames.Run(ctx, keys)
	if cerr := reader.Close(); cerr != nil {
		logger.Warn().Err(cerr).Msg("restore terminal")
	}
	logger.Debug().Int("frames", frames.Frames()).Msg("frame loop ended")
	if err != nil {
		return exitStatus(err, logger)
	}

	if err := program.Terminate(); err != nil {
		return exitStatus(err, logger)
	}
	return 0
}

// exitStatus maps the error that ended a run to a process status. An exit
// statement supplies its own.
func exitStatus(err error, logger zerolog.Logger) int {
	var exit *interpreter.ExitSignal
	if errors.As(err, &exit) {
		return exit.Status
	}
	logger.Error().Err(err).Msg("run failed")
	return 1
}

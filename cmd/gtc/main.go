package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/xplshn/gtc/pkg/cli"
	"github.com/xplshn/gtc/pkg/compiler"
	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/logs"
	"github.com/xplshn/gtc/pkg/util"
)

// errReported marks failures whose diagnostics have already been printed.
var errReported = errors.New("compilation failed")

func main() {
	app := cli.NewApp("gtc")
	app.Synopsis = "[options] <input.teeny>"
	app.Description = "A single-pass compiler from the teeny statement language to C. Pipe the result through any C compiler to get a binary."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gtc>"

	var (
		outFile    string
		logJSON    string
		dumpTokens bool
		verbose    bool
		color      bool
		noColor    bool
		wall       bool
		wNoAll     bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "out.c", "Place the output into <file>, '-' for stdout.", "file")
	fs.String(&logJSON, "log-json", "", "", "Also append JSON log records to <file>.", "file")
	fs.Bool(&dumpTokens, "dump-tokens", "d", false, "Print the token stream and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Log every compilation stage.")
	fs.Bool(&color, "color", "", false, "Always colour diagnostics.")
	fs.Bool(&noColor, "no-color", "", false, "Never colour diagnostics.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wNoAll, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			fmt.Fprintf(app.Stderr, "gtc: expected exactly one input file, got %d\n", len(inputFiles))
			app.Usage()
			return errReported
		}

		// -Wall/-Wno-all first so that individual -W flags can refine them
		if wall {
			cfg.SetAllWarnings(true)
		}
		if wNoAll {
			cfg.SetAllWarnings(false)
		}
		cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)

		level := new(slog.LevelVar)
		level.Set(slog.LevelWarn)
		if verbose {
			level.Set(slog.LevelDebug)
		}
		logger, closeLog, err := logs.New(app.Stderr, level, logJSON)
		if err != nil {
			fmt.Fprintf(app.Stderr, "gtc: error: could not open log file '%s': %v\n", logJSON, err)
			return errReported
		}
		defer closeLog()

		path := inputFiles[0]
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(app.Stderr, "gtc: error: could not read file '%s': %v\n", path, err)
			return errReported
		}
		record := util.SourceFileRecord{Name: path, Content: []rune(string(content))}

		reporter := util.NewReporter(record, app.Stderr)
		reporter.Color = (reporter.Color || color) && !noColor

		if dumpTokens {
			return dumpTokenStream(app.Stdout, record, cfg, reporter)
		}

		logger.Info("compiling", "file", path, "size", humanize.Bytes(uint64(len(content))))
		res, err := compiler.Compile(path, record.Content, cfg, logger)
		if err != nil {
			reporter.Error(err)
			return errReported
		}

		for _, w := range res.Warnings {
			reporter.Warn(w)
		}
		if len(res.Warnings) > 0 && cfg.IsWarningEnabled(config.WarnError) {
			fmt.Fprintf(app.Stderr, "gtc: error: %d warning(s) treated as errors\n", len(res.Warnings))
			return errReported
		}

		if err := writeOutput(app.Stdout, outFile, res.C, logger); err != nil {
			fmt.Fprintf(app.Stderr, "gtc: error: %v\n", err)
			return errReported
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func dumpTokenStream(w io.Writer, record util.SourceFileRecord, cfg *config.Config, reporter *util.Reporter) error {
	tokens, err := compiler.Tokenize(record.Content, cfg)
	if err != nil {
		reporter.Error(err)
		return errReported
	}
	for _, tok := range tokens {
		fmt.Fprintf(w, "%d:%d\t%-8s %q\n", tok.Line, tok.Column, tok.Type, tok.Value)
	}
	return nil
}

// writeOutput leaves an existing file untouched when its content would not change, so build
// tools watching modification times do not rebuild for nothing.
func writeOutput(stdout io.Writer, path, code string, logger *slog.Logger) error {
	if path == "-" {
		_, err := io.WriteString(stdout, code)
		return err
	}

	if old, err := os.ReadFile(path); err == nil && len(old) == len(code) && xxhash.Sum64(old) == xxhash.Sum64String(code) {
		logger.Info("output unchanged", "file", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("could not write output file '%s': %w", path, err)
	}
	logger.Info("wrote output", "file", path, "size", humanize.Bytes(uint64(len(code))))
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/woxQAQ/lensbridge/internal/config"
	"github.com/woxQAQ/lensbridge/internal/service"
	"github.com/woxQAQ/lensbridge/pkg/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `Usage:
  lensbridge [flags] <addon|language> [file]
  lensbridge [flags] --wasm <module.wasm> [file]
  lensbridge [flags] --list

Prints the code lenses the add-on computes for file (or, without a file,
the add-on's document-independent lenses).

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// Parse command-line flags
	fs := pflag.NewFlagSet("lensbridge", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "Path to configuration file")
	wasmPath := fs.String("wasm", "", "Load a bare Wasm module instead of a named add-on")
	list := fs.Bool("list", false, "List the loaded add-ons and exit")
	showVersion := fs.Bool("version", false, "Print the version and exit")
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "lensbridge %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	positional := fs.Args()
	if (*wasmPath == "" && !*list && len(positional) == 0) || len(positional) > 2 {
		fs.Usage()
		return 2
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "lensbridge: failed to load configuration: %v\n", err)
		return 1
	}

	// An ad-hoc module does not need the configured add-on directories.
	if *wasmPath != "" && !fs.Changed("addon-path") {
		cfg.AddonPaths = nil
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "lensbridge: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Debug("Starting lensbridge",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	svc, err := service.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create service", zap.Error(err))
		return 1
	}
	defer svc.Close(context.Background())

	if *list {
		for _, a := range svc.Addons() {
			fmt.Fprintf(stdout, "%s\t%s\t%v\n", a.Name(), a.Version(), a.Languages())
		}
		return 0
	}

	var addonName, file string
	if *wasmPath != "" {
		addonName, err = svc.LoadWasm(ctx, *wasmPath)
		if err != nil {
			logger.Error("Failed to load Wasm module", zap.String("path", *wasmPath), zap.Error(err))
			return 1
		}
		if len(positional) > 1 {
			fs.Usage()
			return 2
		}
		if len(positional) == 1 {
			file = positional[0]
		}
	} else {
		addonName = positional[0]
		if len(positional) == 2 {
			file = positional[1]
		}
	}

	lenses, err := svc.LensesForFile(ctx, addonName, file)
	if err != nil {
		logger.Error("Failed to compute lenses",
			zap.String("addon", addonName),
			zap.String("file", file),
			zap.Error(err),
		)
		return 1
	}

	if err := writeLenses(stdout, cfg.Output, lenses); err != nil {
		logger.Error("Failed to write lenses", zap.Error(err))
		return 1
	}
	return 0
}

// newLogger builds a development logger for debug and a production logger
// at the requested level otherwise. Both write to stderr.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// writeLenses renders lenses in the configured output format.
func writeLenses(w io.Writer, format string, lenses []protocol.CodeLens) error {
	if lenses == nil {
		lenses = []protocol.CodeLens{}
	}

	switch format {
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lenses); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lenses)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

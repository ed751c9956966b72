// tvmdump decodes tinyvm bytecode files and prints their instructions.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/chazu/tinyvm/config"
)

var log = commonlog.GetLogger("tinyvm.tvmdump")

func main() {
	configPath := flag.String("config", "", "Path to a tinyvm.toml file (default: search upward from the working directory)")
	format := flag.String("format", "text", "Output format: text, json or cbor")
	colorMode := flag.String("color", "auto", "Colorize text output: auto, always or never")
	maxDepth := flag.Int("max-depth", 0, "Array nesting limit")
	cachePath := flag.String("cache", "", "SQLite decode cache file")
	noCache := flag.Bool("no-cache", false, "Disable the decode cache")
	keepGoing := flag.Bool("keep-going", false, "Continue with the next file after a decode failure")
	noWords := flag.Bool("no-words", false, "Do not print the raw word stream")
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Decode word streams typed at a prompt")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tvmdump [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Decodes tinyvm bytecode files and prints their instructions.\n")
		fmt.Fprintf(os.Stderr, "With no files, decodes the [samples] listed in tinyvm.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tvmdump prog.compiled               # Print words and instructions\n")
		fmt.Fprintf(os.Stderr, "  tvmdump -format json a.bin b.bin    # One JSON document per file\n")
		fmt.Fprintf(os.Stderr, "  tvmdump -keep-going samples/*       # Report every bad file\n")
		fmt.Fprintf(os.Stderr, "  tvmdump -i                          # Type words, e.g. 3 0 42 29\n")
	}
	flag.Parse()

	setupLogging(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Output.Format = *format
		case "color":
			cfg.Output.Color = *colorMode
		case "max-depth":
			cfg.Decoder.MaxDepth = *maxDepth
		case "cache":
			abs, err := filepath.Abs(*cachePath)
			if err != nil {
				flagErr = err
			}
			cfg.Cache.Path = abs
		case "no-cache":
			if *noCache {
				cfg.Cache.Path = ""
			}
		case "keep-going":
			cfg.Samples.KeepGoing = *keepGoing
		case "no-words":
			cfg.Output.ShowWords = !*noWords
		}
	})
	if flagErr == nil {
		flagErr = cfg.Validate()
	}
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(1)
	}

	color := useColor(cfg.Output.Color, term.IsTerminal(int(os.Stdout.Fd())))
	d, err := newDumper(cfg, os.Stdout, color)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		code := runREPL(d)
		d.Close()
		os.Exit(code)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = cfg.SampleFiles()
	}
	if len(paths) == 0 {
		d.Close()
		flag.Usage()
		os.Exit(2)
	}

	code := d.dumpFiles(paths, os.Stderr)
	d.Close()
	os.Exit(code)
}

func setupLogging(verbose bool) {
	backend := simple.NewBackend()
	backend.Buffered = false
	commonlog.SetBackend(backend)

	verbosity := -1 // warnings and errors
	if verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}

// loadConfig reads the file named by path, or searches upward from the
// working directory when path is empty. Without a file the defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		log.Debug("no tinyvm.toml found, using defaults")
		return config.Default(), nil
	}
	log.Debugf("loaded %s", filepath.Join(cfg.Dir, config.FileName))
	return cfg, nil
}

// useColor resolves a color mode against whether stdout is a terminal.
func useColor(mode string, isTerminal bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTerminal && os.Getenv("NO_COLOR") == ""
	}
}

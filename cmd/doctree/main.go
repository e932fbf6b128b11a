// Package main is a command line front end for the doctree engine:
// it loads a file into a document and answers position, line, search,
// and replace queries against the snapshot.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dshills/doctree/internal/config"
	"github.com/dshills/doctree/internal/engine/doc"
	"github.com/dshills/doctree/internal/engine/tree"
	"github.com/dshills/doctree/internal/textenc"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	stat       bool
	line       int
	search     string
	replace    string
	regex      bool
	ignoreCase bool
	wholeWord  bool
	limit      int
	check      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, args := parseFlags()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: doctree [flags] FILE")
		flag.PrintDefaults()
		return 2
	}
	if err := validateOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.NewLoader(opts.configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	text, err := textenc.Decode(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", args[0], err)
		return 1
	}

	d := doc.FromString(text)

	if opts.check {
		if err := d.Read().Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid tree: %v\n", err)
			return 1
		}
		fmt.Println("ok")
	}

	if opts.stat {
		printStat(d.Read())
	}

	if opts.line >= 0 {
		t := d.Read()
		line := uint32(opts.line)
		if _, ok := t.LineToByte(line); !ok {
			fmt.Fprintf(os.Stderr, "Error: line %d out of range (0..%d)\n", opts.line, t.LineCount())
			return 1
		}
		fmt.Println(t.LineTextTrimmed(line))
	}

	if opts.search != "" {
		searchOpts := searchOptions(cfg, opts)
		if opts.replace != "" {
			next := d.ReplaceAll(opts.search, opts.replace, searchOpts)
			fmt.Print(next.Flatten())
		} else {
			for _, m := range d.Search(opts.search, searchOpts) {
				printMatch(d.Read(), m, cfg.Engine.ContextLines)
			}
		}
	}

	return 0
}

// validateOptions rejects flag combinations that would otherwise be
// silently ignored.
func validateOptions(opts options) error {
	if opts.replace != "" && opts.search == "" {
		return errors.New("-replace requires -search")
	}
	return nil
}

func searchOptions(cfg *config.Config, opts options) tree.SearchOptions {
	so := tree.SearchOptions{
		CaseSensitive: cfg.Search.CaseSensitive,
		WholeWord:     cfg.Search.WholeWord,
		Regex:         cfg.Search.Regex,
		Limit:         cfg.Search.Limit,
	}
	if opts.ignoreCase {
		so.CaseSensitive = false
	}
	if opts.wholeWord {
		so.WholeWord = true
	}
	if opts.regex {
		so.Regex = true
	}
	if opts.limit > 0 {
		so.Limit = opts.limit
	}
	return so
}

// printMatch prints one match as line:col:text, with up to context
// surrounding lines on each side when configured.
func printMatch(t *tree.Tree, m tree.SearchMatch, context int) {
	if context > 0 {
		first := int(m.Line) - context
		if first < 0 {
			first = 0
		}
		for l := uint32(first); l < m.Line; l++ {
			fmt.Printf("%d- %s\n", l+1, t.LineTextTrimmed(l))
		}
	}

	fmt.Printf("%d:%d:%s\n", m.Line+1, m.Column+1, m.Text(t))

	if context > 0 {
		last := m.Line + uint32(context)
		if last > t.LineCount() {
			last = t.LineCount()
		}
		for l := m.Line + 1; l <= last; l++ {
			fmt.Printf("%d- %s\n", l+1, t.LineTextTrimmed(l))
		}
	}
}

func printStat(t *tree.Tree) {
	fmt.Printf("bytes:   %d\n", t.ByteCount())
	fmt.Printf("chars:   %d\n", t.CharCount())
	fmt.Printf("utf16:   %d\n", t.LenUTF16())
	fmt.Printf("lines:   %d\n", t.LineCount()+1)
	fmt.Printf("version: %d\n", t.Version())
}

func parseFlags() (options, []string) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", ".doctree.toml", "Path to configuration file")
	flag.BoolVar(&opts.stat, "stat", false, "Print document statistics")
	flag.IntVar(&opts.line, "line", -1, "Print the given zero-based line")
	flag.StringVar(&opts.search, "search", "", "Search for a pattern")
	flag.StringVar(&opts.replace, "replace", "", "Replace -search matches and print the result (requires -search)")
	flag.BoolVar(&opts.regex, "regex", false, "Treat the search pattern as a regular expression")
	flag.BoolVar(&opts.ignoreCase, "icase", false, "Case-insensitive search")
	flag.BoolVar(&opts.wholeWord, "word", false, "Match whole words only")
	flag.IntVar(&opts.limit, "limit", 0, "Maximum number of matches (0 = unlimited)")
	flag.BoolVar(&opts.check, "check", false, "Validate tree structure")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("doctree %s (commit %s, built %s)\n", version, commit, date)
		os.Exit(0)
	}

	return opts, flag.Args()
}

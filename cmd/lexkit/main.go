package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/spicery/lexkit/pkg/lexkit"
	"github.com/spicery/lexkit/pkg/lexkit/premade"
)

const (
	version     = "0.1.0"
	historyFile = ".lexkit_history"
	prompt      = "lex> "
	usage       = `lexkit - a configurable lexer toolkit

Usage:
  lexkit [options]

Options:
  -h, --help            Show this help message
  -v, --version         Show version information
  --input <file>        Input file (defaults to stdin)
  --output <file>       Output file (defaults to stdout)
  --rules <file>        YAML rules file describing the lexer (optional)
  --make-rules          Generate default rules YAML to stdout
  --exit0               Exit with code 0 even on lexing errors
  --repl                Read lines interactively and print their tokens
  --debug               Dump the loaded rules to stderr before lexing

Examples:
  lexkit                                       # Read from stdin, write to stdout
  lexkit --input source.txt                    # Read from file, write to stdout
  lexkit --output tokens.json                  # Read from stdin, write to file
  lexkit --rules custom.yaml --input source.txt    # Use custom rules
  lexkit --make-rules > rules.yaml             # Generate default rules configuration
  lexkit --repl                                # Interactive session
  echo "var x = 1" | lexkit                    # Read from stdin, write to stdout

The lexer outputs one JSON entry per line. A dependent rule produces an
array holding its chained tokens.
`
)

func main() {
	var showHelp, showVersion, exit0, makeRules, repl, debug bool
	var inputFile, outputFile, rulesFile string

	flag.BoolVar(&showHelp, "h", false, "Show help")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&exit0, "exit0", false, "Exit with code 0 even on errors")
	flag.BoolVar(&makeRules, "make-rules", false, "Generate default rules YAML")
	flag.BoolVar(&repl, "repl", false, "Interactive session")
	flag.BoolVar(&debug, "debug", false, "Dump loaded rules to stderr")
	flag.StringVar(&inputFile, "input", "", "Input file (defaults to stdin)")
	flag.StringVar(&outputFile, "output", "", "Output file (defaults to stdout)")
	flag.StringVar(&rulesFile, "rules", "", "YAML rules file (optional)")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("lexkit version %s\n", version)
		os.Exit(0)
	}

	if makeRules {
		if err := generateDefaultConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating default rules: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Reject any positional arguments
	if len(flag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Error: Unexpected positional arguments. Use --input and --output flags instead.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	lx, err := buildLexer(rulesFile, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
		os.Exit(1)
	}

	if repl {
		os.Exit(runRepl(lx))
	}

	var input string

	// Read input
	if inputFile == "" {
		input, err = readFromStdin()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
			os.Exit(1)
		}
	} else {
		input, err = readFromFile(inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", inputFile, err)
			os.Exit(1)
		}
	}

	// Process input
	entries, lexErr := lx.Evaluate(input)

	// Prepare output destination
	var output io.Writer
	var outputCloser io.Closer

	if outputFile == "" {
		output = os.Stdout
	} else {
		file, err := os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
		output = file
		outputCloser = file
	}

	// Output entries as JSON, one per line
	for _, entry := range entries {
		jsonBytes, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON encoding error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(output, string(jsonBytes))
	}

	// Close output file if we opened one
	if outputCloser != nil {
		if err := outputCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output file '%s': %v\n", outputFile, err)
			os.Exit(1)
		}
	}

	// Handle lexing error after outputting entries
	if lexErr != nil {
		if exit0 {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Lexing error: %v\n", lexErr)
		os.Exit(1)
	}
}

// buildLexer builds the lexer from a rules file, or from the default rules
// when no file is given. With debug set, the rule definitions are dumped to
// stderr.
func buildLexer(rulesFile string, debug bool) (*lexkit.Lexer, error) {
	var rf *lexkit.RulesFile
	var err error

	if rulesFile == "" {
		rf = lexkit.DefaultRulesFile()
	} else {
		rf, err = lexkit.LoadRulesFile(rulesFile)
		if err != nil {
			return nil, err
		}
	}

	if debug {
		spew.Fdump(os.Stderr, rf)
	}

	b, err := rf.NewBuilder(premade.Library())
	if err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// runRepl reads lines interactively and prints the entries of each line.
func runRepl(lx *lexkit.Lexer) int {
	fmt.Printf("lexkit %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if err != nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == ":quit" {
			return 0
		}

		entries, lexErr := lx.Evaluate(line)
		for _, entry := range entries {
			jsonBytes, err := json.Marshal(entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "JSON encoding error: %v\n", err)
				continue
			}
			fmt.Println(string(jsonBytes))
		}
		if lexErr != nil {
			fmt.Fprintln(os.Stderr, lexErr.Error())
		}
		ln.AppendHistory(line)
	}
}

// readFromStdin reads all input from stdin.
func readFromStdin() (string, error) {
	bytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// readFromFile reads the contents of a file.
func readFromFile(filename string) (string, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// generateDefaultConfig outputs the default configuration in YAML format to stdout.
func generateDefaultConfig() error {
	yamlBytes, err := yaml.Marshal(lexkit.DefaultRulesFile())
	if err != nil {
		return fmt.Errorf("failed to marshal rules to YAML: %w", err)
	}

	fmt.Print(string(yamlBytes))
	return nil
}

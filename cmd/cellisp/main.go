package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cellisp/cellisp"
	"github.com/spf13/cobra"
)

func main() {
	var (
		nodes        int
		symbols      int
		maxSymbolLen int
		maxParams    int
		dump         bool
		scriptPath   string
	)

	rootCmd := &cobra.Command{
		Use:           "cellisp",
		Short:         "Interactive Lisp interpreter on a fixed cons-cell arena",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cellisp.NewConfig()
			cfg.SetInt("arena.nodes", nodes)
			cfg.SetInt("symtab.slots", symbols)
			cfg.SetInt("symtab.max_symbol_len", maxSymbolLen)
			cfg.SetInt("eval.max_params", maxParams)
			cfg.SetBool("repl.dump", dump)

			interp := cellisp.New(cfg)

			input := io.Reader(os.Stdin)
			prompt := true
			if scriptPath != "" {
				f, err := os.Open(scriptPath)
				if err != nil {
					return err
				}
				defer f.Close()
				input = f
				prompt = false
			}
			return repl(interp, cfg, input, os.Stdout, os.Stderr, prompt)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&nodes, "nodes", cellisp.DefaultNodes, "Capacity of the cons-cell arena")
	flags.IntVar(&symbols, "symbols", cellisp.DefaultSymbols, "Number of symbol table slots")
	flags.IntVar(&maxSymbolLen, "max-symbol-len", cellisp.DefaultMaxSymbolLen, "Symbols longer than this are truncated when interned")
	flags.IntVar(&maxParams, "max-params", cellisp.DefaultMaxParams, "Parameter limit per call frame")
	flags.BoolVar(&dump, "dump", false, "Print the arena and symbol table after every command")
	flags.StringVar(&scriptPath, "eval", "", "Read commands from a file instead of stdin")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// repl runs the line loop: prompt, accumulate until the parens
// balance, evaluate, print. Comment lines and blank lines are
// discarded. Recoverable errors go to stderr and the loop continues;
// fatal errors end the process.
func repl(interp *cellisp.Interp, cfg *cellisp.Config, r io.Reader, w, errw io.Writer, prompt bool) error {
	scanner := bufio.NewScanner(r)
	for {
		if prompt && !interp.InProgress() {
			fmt.Fprint(w, "> ")
		}
		if !scanner.Scan() {
			if prompt {
				fmt.Fprintln(w)
			}
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if !interp.Read(line) {
			continue
		}

		result, err := interp.Run()
		if err != nil {
			if cellisp.IsFatal(err) {
				return err
			}
			fmt.Fprintln(errw, err)
		} else {
			fmt.Fprintf(w, "%s\n\n", result)
		}
		if cfg.GetBool("repl.dump") {
			interp.Dump(w)
		}
	}
}

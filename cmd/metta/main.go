package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	metta "github.com/arturgontijo/metta-go"
)

const (
	appName     = "metta"
	historyFile = ".metta_history"
	promptMain  = "metta> "
	promptCont  = "  ...> "
)

var banner = fmt.Sprintf("MeTTa %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", metta.Version)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(metta.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`MeTTa %s (built %s)

Usage:
  %s run <file.metta>    Run a program and print the results of its ! directives.
  %s repl                Start the REPL.
  %s version             Print the compiled version

`, metta.Version, metta.BuildDate, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.metta>\n", appName)
		return 2
	}

	ip, err := metta.NewInterpreter()
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer func() {
		if cerr := ip.Close(); cerr != nil {
			fmt.Fprintln(os.Stderr, red(cerr.Error()))
		}
	}()

	results, err := ip.RunFile(args[0])
	for _, a := range results {
		fmt.Println(formatResult(a))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

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

	ip, err := metta.NewInterpreter()
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer func() { _ = ip.Close() }()

	for {
		code, ok := readByParseProbe(ln, ip, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			default:
				fmt.Printf("unknown command. Type :quit to exit.\n")
			}
			continue
		}

		// Bare forms at the prompt evaluate; files need the explicit '!'.
		if !strings.HasPrefix(trimmed, "!") && !strings.HasPrefix(trimmed, "(=") &&
			!strings.HasPrefix(trimmed, "(:") {
			code = "!" + trimmed
		}

		results, err := ip.RunSource(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		for _, a := range results {
			fmt.Println(colorizeResult(a))
		}
		ln.AppendHistory(strings.ReplaceAll(trimmed, "\n", " "))
	}

	return 0
}

// readByParseProbe accumulates lines until the input parses or fails with a
// definite (non-incomplete) error. Incomplete parses keep prompting.
func readByParseProbe(ln *liner.State, ip *metta.Interpreter, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if perr := probeParse(src, ip); perr == nil || !metta.IsIncomplete(perr) {
			return src, true
		}
	}
}

func probeParse(src string, ip *metta.Interpreter) error {
	p := metta.NewParser(strings.TrimPrefix(strings.TrimSpace(src), "!"), ip.Tokenizer)
	for {
		form, _, err := p.Next()
		if err != nil {
			return err
		}
		if form == nil {
			return nil
		}
	}
}

func formatResult(a metta.Atom) string {
	if g, ok := a.(metta.GroundedAtom); ok {
		if s, ok := g.Value.(metta.Str); ok {
			return s.S
		}
	}
	return a.String()
}

func colorizeResult(a metta.Atom) string {
	if metta.IsErrorAtom(a) {
		return red(a.String())
	}
	if a.Kind() == metta.GroundedKind {
		return green(formatResult(a))
	}
	return blue(formatResult(a))
}

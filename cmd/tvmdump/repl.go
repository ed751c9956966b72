package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

const historyFile = ".tvmdump_history"

const replHelp = `Type words separated by spaces or commas, e.g. "3 0 42 29" or "[16, 9]".
Words may be decimal, 0x hex, or a quoted character such as 'f'.
Commands: :help, :quit`

func runREPL(d *dumper) int {
	fmt.Fprintln(d.out, "tvmdump interactive mode. Type :help for help.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("tvm> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(d.out)
			return 0
		}
		if err != nil {
			log.Errorf("reading input: %v", err)
			return 1
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if quit := d.evalLine(line, os.Stderr); quit {
			return 0
		}
	}
}

// evalLine handles one line of interactive input and reports whether the
// session should end.
func (d *dumper) evalLine(line string, errOut io.Writer) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == ":quit" || line == ":q":
		return true
	case line == ":help":
		fmt.Fprintln(d.out, replHelp)
		return false
	case strings.HasPrefix(line, ":"):
		fmt.Fprintln(errOut, "unknown command. Type :help for help.")
		return false
	}

	words, err := parseWords(line)
	if err != nil {
		fmt.Fprintln(errOut, d.paint(ansiRed, "Error: "+err.Error()))
		return false
	}
	prog, err := d.decode(words)
	if err != nil {
		fmt.Fprintln(errOut, d.paint(ansiRed, "Error: "+err.Error()))
		return false
	}
	if err := d.write("<input>", words, prog); err != nil {
		fmt.Fprintln(errOut, d.paint(ansiRed, "Error: "+err.Error()))
	}
	return false
}

// parseWords reads a typed word stream. Brackets and commas are optional.
func parseWords(line string) ([]bytecode.Word, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "[")
	line = strings.TrimSuffix(line, "]")

	fields, err := splitWords(line)
	if err != nil {
		return nil, err
	}
	words := make([]bytecode.Word, 0, len(fields))
	for _, f := range fields {
		if f[0] == '\'' {
			r, _, tail, err := strconv.UnquoteChar(f[1:len(f)-1], '\'')
			if err != nil || tail != "" {
				return nil, fmt.Errorf("bad character word %s", f)
			}
			words = append(words, bytecode.Word(r))
			continue
		}
		w, err := strconv.ParseInt(f, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad word %q: %w", f, errors.Unwrap(err))
		}
		words = append(words, w)
	}
	return words, nil
}

// splitWords splits on spaces, tabs and commas. A quoted character is one
// field even when it is a separator, as in ' ' or ','.
func splitWords(line string) ([]string, error) {
	var fields []string
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t' || c == ',':
			i++

		case c == '\'':
			j := i + 1
			for j < len(line) && line[j] != '\'' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated character word %s", line[i:])
			}
			fields = append(fields, line[i:j+1])
			i = j + 1

		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t,", rune(line[j])) {
				j++
			}
			fields = append(fields, line[i:j])
			i = j
		}
	}
	return fields, nil
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/tinyvm/config"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/dump"
	"github.com/chazu/tinyvm/pkg/store"
	"github.com/chazu/tinyvm/pkg/wordstream"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
)

// dumper decodes word streams and writes them in the configured format.
type dumper struct {
	cfg     *config.Config
	decoder *bytecode.Decoder
	cache   *store.Store
	out     io.Writer
	color   bool
}

func newDumper(cfg *config.Config, out io.Writer, color bool) (*dumper, error) {
	d := &dumper{
		cfg:     cfg,
		decoder: bytecode.NewDecoder(cfg.DecoderOptions()...),
		out:     out,
		color:   color,
	}
	if path := cfg.CachePath(); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening cache %s: %w", path, err)
		}
		d.cache = s
	}
	return d, nil
}

func (d *dumper) Close() error {
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

func (d *dumper) decode(words []bytecode.Word) (bytecode.Program, error) {
	if d.cache != nil {
		return d.cache.Decode(d.decoder, words)
	}
	return d.decoder.DecodeProgram(words)
}

// dumpFiles decodes and prints each path. Failures are reported on errOut.
// It returns the process exit code.
func (d *dumper) dumpFiles(paths []string, errOut io.Writer) int {
	code := 0
	for _, path := range paths {
		if err := d.dumpFile(path); err != nil {
			fmt.Fprintf(errOut, "%s\n", d.paint(ansiRed, "Error: "+err.Error()))
			code = 1
			if !d.cfg.Samples.KeepGoing {
				return code
			}
		}
	}
	return code
}

func (d *dumper) dumpFile(path string) error {
	words, err := wordstream.ReadFile(path)
	if err != nil {
		return err
	}
	log.Infof("decoding %s (%d words)", path, len(words))

	prog, err := d.decode(words)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return d.write(path, words, prog)
}

// write renders one decoded stream.
func (d *dumper) write(name string, words []bytecode.Word, prog bytecode.Program) error {
	switch d.cfg.Output.Format {
	case "json":
		data, err := dump.MarshalJSON(prog)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(d.out, "%s\n", data)
		return err

	case "cbor":
		data, err := dump.MarshalCBOR(prog)
		if err != nil {
			return err
		}
		_, err = d.out.Write(data)
		return err

	default:
		_, err := io.WriteString(d.out, d.renderText(name, words, prog))
		return err
	}
}

func (d *dumper) renderText(name string, words []bytecode.Word, prog bytecode.Program) string {
	var sb strings.Builder

	sb.WriteString(d.paint(ansiBold, "[decode] "+name))
	sb.WriteByte('\n')
	if d.cfg.Output.ShowWords {
		fmt.Fprintf(&sb, "\tByte Code    : %s\n", bytecode.FormatWords(words))
	}
	sb.WriteString("\tInstructions :\n")

	offsets := prog.Offsets()
	for i, ins := range prog {
		sb.WriteString(d.paint(ansiDim, fmt.Sprintf("%04X", offsets[i])))
		sb.WriteString("  ")
		sb.WriteString(d.paint(ansiCyan, ins.Op.String()))
		for _, v := range ins.Operands {
			sb.WriteByte(' ')
			sb.WriteString(v.String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (d *dumper) paint(code, s string) string {
	if !d.color {
		return s
	}
	return code + s + ansiReset
}

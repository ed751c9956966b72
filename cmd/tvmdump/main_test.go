package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/tinyvm/config"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/dump"
	"github.com/chazu/tinyvm/pkg/wordstream"
)

func newTestDumper(t *testing.T, mutate func(*config.Config)) (*dumper, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	var out bytes.Buffer
	d, err := newDumper(cfg, &out, false)
	if err != nil {
		t.Fatalf("newDumper: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, &out
}

func writeSample(t *testing.T, dir, name string, words []bytecode.Word) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := wordstream.WriteFile(path, words); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDumpFileText(t *testing.T) {
	d, out := newTestDumper(t, nil)
	path := writeSample(t, t.TempDir(), "test_1.toy.compiled", []bytecode.Word{3, 0, 42, 29})

	if err := d.dumpFile(path); err != nil {
		t.Fatalf("dumpFile: %v", err)
	}

	want := "[decode] " + path + "\n" +
		"\tByte Code    : [3, 0, 42, 29]\n" +
		"\tInstructions :\n" +
		"0000  PUSH 42\n" +
		"0003  PRINT\n"
	if out.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestDumpFileHideWords(t *testing.T) {
	d, out := newTestDumper(t, func(c *config.Config) { c.Output.ShowWords = false })
	path := writeSample(t, t.TempDir(), "p.bin", []bytecode.Word{16, 9})

	if err := d.dumpFile(path); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Byte Code") {
		t.Errorf("words printed with show-words off:\n%s", out)
	}
	if !strings.Contains(out.String(), "0001  RETURN") {
		t.Errorf("missing RETURN line:\n%s", out)
	}
}

func TestDumpFileColor(t *testing.T) {
	d, out := newTestDumper(t, nil)
	d.color = true
	path := writeSample(t, t.TempDir(), "p.bin", []bytecode.Word{16})

	if err := d.dumpFile(path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), ansiCyan+"NOP"+ansiReset) {
		t.Errorf("opcode not colorized: %q", out.String())
	}
}

func TestDumpFileJSON(t *testing.T) {
	d, out := newTestDumper(t, func(c *config.Config) { c.Output.Format = "json" })
	path := writeSample(t, t.TempDir(), "p.bin", []bytecode.Word{17, 1, 1, 'f', 0, 1, 9})

	if err := d.dumpFile(path); err != nil {
		t.Fatal(err)
	}
	var doc dump.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not a JSON document: %v\n%s", err, out)
	}
	if len(doc.Instructions) != 2 || doc.Instructions[0].Op != "FUNC_DECLARE" {
		t.Errorf("document = %+v", doc)
	}
}

func TestDumpFileCBOR(t *testing.T) {
	d, out := newTestDumper(t, func(c *config.Config) { c.Output.Format = "cbor" })
	words := []bytecode.Word{3, 2, 1, 16}
	path := writeSample(t, t.TempDir(), "p.bin", words)

	if err := d.dumpFile(path); err != nil {
		t.Fatal(err)
	}
	got, err := dump.UnmarshalCBOR(out.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalCBOR: %v", err)
	}
	want, _ := bytecode.DecodeProgram(words)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CBOR program = %v, want %v", got, want)
	}
}

func TestDumpFilesStopsOnFirstError(t *testing.T) {
	dir := t.TempDir()
	bad := writeSample(t, dir, "bad.bin", []bytecode.Word{3})
	good := writeSample(t, dir, "good.bin", []bytecode.Word{16})

	d, out := newTestDumper(t, nil)
	var errOut bytes.Buffer
	if code := d.dumpFiles([]string{bad, good}, &errOut); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if strings.Contains(out.String(), "good.bin") {
		t.Error("decoded a file after a failure without keep-going")
	}
	if !strings.Contains(errOut.String(), "Error: "+bad+": PUSH operand 1: truncated input") {
		t.Errorf("error output = %q", errOut.String())
	}
}

func TestDumpFilesKeepGoing(t *testing.T) {
	dir := t.TempDir()
	bad := writeSample(t, dir, "bad.bin", []bytecode.Word{99})
	good := writeSample(t, dir, "good.bin", []bytecode.Word{16})
	missing := filepath.Join(dir, "missing.bin")

	d, out := newTestDumper(t, func(c *config.Config) { c.Samples.KeepGoing = true })
	var errOut bytes.Buffer
	if code := d.dumpFiles([]string{bad, missing, good}, &errOut); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "[decode] "+good) {
		t.Errorf("good file not decoded:\n%s", out)
	}
	if n := strings.Count(errOut.String(), "Error: "); n != 2 {
		t.Errorf("reported %d errors, want 2:\n%s", n, errOut.String())
	}
}

func TestDumpFilesWithCache(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "p.bin", []bytecode.Word{3, 0, 7, 30})

	d, out := newTestDumper(t, func(c *config.Config) { c.Cache.Path = filepath.Join(dir, "cache.db") })
	for i := 0; i < 2; i++ {
		if code := d.dumpFiles([]string{path}, &bytes.Buffer{}); code != 0 {
			t.Fatalf("pass %d exit code = %d", i, code)
		}
	}
	if n, err := d.cache.Len(); err != nil || n != 1 {
		t.Errorf("cache Len() = (%d, %v), want 1", n, err)
	}
	if strings.Count(out.String(), "0003  PRINTLN") != 2 {
		t.Errorf("cached output differs:\n%s", out)
	}
}

func TestUseColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	tests := []struct {
		mode string
		tty  bool
		want bool
	}{
		{"always", false, true},
		{"never", true, false},
		{"auto", true, true},
		{"auto", false, false},
	}
	for _, tt := range tests {
		if got := useColor(tt.mode, tt.tty); got != tt.want {
			t.Errorf("useColor(%q, %v) = %v, want %v", tt.mode, tt.tty, got, tt.want)
		}
	}

	t.Setenv("NO_COLOR", "1")
	if useColor("auto", true) {
		t.Error("NO_COLOR should disable auto color")
	}
}

func TestParseWords(t *testing.T) {
	tests := []struct {
		line string
		want []bytecode.Word
	}{
		{"16 9", []bytecode.Word{16, 9}},
		{"[3, 0, 42, 29]", []bytecode.Word{3, 0, 42, 29}},
		{"0x11 1 3 'f' 'o' 'o' 0 -5", []bytecode.Word{17, 1, 3, 'f', 'o', 'o', 0, -5}},
		{"1 1 '\\u00e9'", []bytecode.Word{1, 1, 0xE9}},
		{"", []bytecode.Word{}},
		{"1 3 ' ' ',' 'a'", []bytecode.Word{1, 3, ' ', ',', 'a'}},
		{"[1,1,'\\'']", []bytecode.Word{1, 1, '\''}},
	}
	for _, tt := range tests {
		got, err := parseWords(tt.line)
		if err != nil {
			t.Errorf("parseWords(%q) error: %v", tt.line, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseWords(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}

	for _, bad := range []string{"1 two", "'ab'", "99999999999999999999", "1 'x", "''"} {
		if _, err := parseWords(bad); err == nil {
			t.Errorf("parseWords(%q) succeeded", bad)
		}
	}
}

func TestEvalLine(t *testing.T) {
	d, out := newTestDumper(t, nil)
	var errOut bytes.Buffer

	if d.evalLine("3 0 42 29", &errOut) {
		t.Fatal("evalLine quit on input")
	}
	if !strings.Contains(out.String(), "[decode] <input>") || !strings.Contains(out.String(), "0000  PUSH 42") {
		t.Errorf("output:\n%s", out)
	}

	d.evalLine("3 4", &errOut)
	if !strings.Contains(errOut.String(), "value tag has no wire encoding") {
		t.Errorf("error output = %q", errOut.String())
	}

	d.evalLine(":bogus", &errOut)
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Errorf("error output = %q", errOut.String())
	}

	out.Reset()
	d.evalLine(":help", &errOut)
	if !strings.Contains(out.String(), "Commands:") {
		t.Errorf("help output = %q", out.String())
	}

	if !d.evalLine(":quit", &errOut) {
		t.Error(":quit should end the session")
	}
}

func TestRepositorySamples(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("..", "..", config.FileName))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.Output.Color = "never"

	var out, errOut bytes.Buffer
	d, err := newDumper(cfg, &out, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	paths := cfg.SampleFiles()
	if len(paths) == 0 {
		t.Fatal("no samples configured")
	}
	if code := d.dumpFiles(paths, &errOut); code != 0 {
		t.Fatalf("exit code = %d:\n%s", code, errOut.String())
	}
	if got := strings.Count(out.String(), "[decode] "); got != len(paths) {
		t.Errorf("decoded %d files, want %d", got, len(paths))
	}
	for _, want := range []string{`PUSH "hello, world"`, `FUNC_DECLARE "pair" 6`, "JUMP_ABS 5", "ASSERT"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("sample output missing %q", want)
		}
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	var out bytes.Buffer
	d, err := newDumper(cfg, &out, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	path := writeSample(t, dir, "test_1.toy.compiled", []bytecode.Word{3, 0, 42, 29})
	if code := d.dumpFiles([]string{path}, &bytes.Buffer{}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "0003  PRINT") {
		t.Errorf("output:\n%s", out.String())
	}
}

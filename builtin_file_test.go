// builtin_file_test.go
package metta

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func Test_File_WriteThenReadRoundTrip(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	wantResults(t, ip, `
!(bind! &f (file-open! "/notes.txt" "wc"))
!(file-write! &f "hello files")
!(file-close! &f)
!(bind! &g (file-open! "/notes.txt" "r"))
!(file-read-to-string! &g)
!(file-close! &g)
`, []string{"()", "()", "()", "()", `"hello files"`, "()"})
}

func Test_File_ModeValidation(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	cases := []struct {
		mode string
		msg  string
	}{
		{"rc", `file mode "rc" requires w`},
		{"a", `file mode "a" requires w`},
		{"t", `file mode "t" requires w`},
		{"", `file mode "" opens for neither reading nor writing`},
		{"x", `unknown file mode character 'x' in "x"`},
	}
	for _, c := range cases {
		results := run(t, ip, `!(file-open! "/f" "`+c.mode+`")`)
		if len(results) != 1 || !IsErrorAtom(results[0]) {
			t.Fatalf("mode %q: want Error atom, got %v", c.mode, atomStrings(results))
		}
		if msg, _ := ErrorAtomMessage(results[0]); msg != c.msg {
			t.Fatalf("mode %q: want message %q, got %q", c.mode, c.msg, msg)
		}
	}
}

func Test_File_ReadOnMissingFile(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	results := run(t, ip, `!(file-open! "/does-not-exist" "r")`)
	if len(results) != 1 || !IsErrorAtom(results[0]) {
		t.Fatalf("want Error atom, got %v", atomStrings(results))
	}
}

func Test_File_CapabilityChecks(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	run(t, ip, `!(bind! &w (file-open! "/w.txt" "wc"))`)
	results := run(t, ip, "!(file-read-to-string! &w)")
	if len(results) != 1 || !IsErrorAtom(results[0]) {
		t.Fatalf("read on write-only handle accepted: %v", atomStrings(results))
	}

	if err := afero.WriteFile(ip.Fs, "/r.txt", []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run(t, ip, `!(bind! &r (file-open! "/r.txt" "r"))`)
	results = run(t, ip, `!(file-write! &r "nope")`)
	if len(results) != 1 || !IsErrorAtom(results[0]) {
		t.Fatalf("write on read-only handle accepted: %v", atomStrings(results))
	}
}

func Test_File_SeekAndReadExact(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	if err := afero.WriteFile(ip.Fs, "/data.txt", []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	wantResults(t, ip, `
!(bind! &f (file-open! "/data.txt" "r"))
!(file-seek! &f 4)
!(file-read-exact! &f 3)
!(file-get-size! &f)
`, []string{"()", "()", `"456"`, "10"})

	// a short read near the end is not an error
	wantResults(t, ip, `
!(file-seek! &f 8)
!(file-read-exact! &f 100)
`, []string{"()", `"89"`})
}

func Test_File_ReadExactCapsOversizedCount(t *testing.T) {
	// a count far beyond the file size must not allocate beyond the
	// remaining bytes
	ip, _ := newTestInterpreter(t)
	if err := afero.WriteFile(ip.Fs, "/small.txt", []byte("tiny"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	wantResults(t, ip, `
!(bind! &f (file-open! "/small.txt" "r"))
!(file-read-exact! &f 1000000000000)
`, []string{"()", `"tiny"`})

	// past the end the remaining span is empty
	wantResults(t, ip, "!(file-read-exact! &f 1000000000000)", []string{`""`})
}

func Test_File_Truncate(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	if err := afero.WriteFile(ip.Fs, "/log.txt", []byte("old content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run(t, ip, `
!(bind! &f (file-open! "/log.txt" "wt"))
!(file-write! &f "new")
!(file-close! &f)
`)
	data, err := afero.ReadFile(ip.Fs, "/log.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("truncate failed: %q", data)
	}
}

func Test_File_Append(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	if err := afero.WriteFile(ip.Fs, "/log.txt", []byte("one\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run(t, ip, `
!(bind! &f (file-open! "/log.txt" "wa"))
!(file-write! &f "two\n")
!(file-close! &f)
`)
	data, err := afero.ReadFile(ip.Fs, "/log.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("append failed: %q", data)
	}
}

func Test_File_WriteAtomForm(t *testing.T) {
	// non-string atoms write their printed form
	ip, _ := newTestInterpreter(t)
	run(t, ip, `
!(bind! &f (file-open! "/atoms.txt" "wc"))
!(file-write! &f (frog Fritz))
!(file-close! &f)
`)
	data, err := afero.ReadFile(ip.Fs, "/atoms.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "(frog Fritz)" {
		t.Fatalf("want printed atom, got %q", data)
	}
}

func Test_File_CloseReleasesTracking(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	run(t, ip, `
!(bind! &f (file-open! "/a.txt" "wc"))
!(file-close! &f)
`)
	// closing the interpreter must not re-close the handle
	if err := ip.Close(); err != nil {
		t.Fatalf("Close after file-close!: %v", err)
	}
}

func Test_File_InterpreterCloseClosesLeaks(t *testing.T) {
	ip, err := NewInterpreter()
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	ip.Fs = afero.NewMemMapFs()
	run(t, ip, `!(bind! &f (file-open! "/leak.txt" "wc"))`)
	if err := ip.Close(); err != nil {
		t.Fatalf("Close with open handle: %v", err)
	}
	// the handle is gone; a second Close is a no-op
	if err := ip.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func Test_File_HandlePrinting(t *testing.T) {
	ip, _ := newTestInterpreter(t)
	results := run(t, ip, `!(file-open! "/p.txt" "wc")`)
	if len(results) != 1 {
		t.Fatalf("want 1 handle, got %v", atomStrings(results))
	}
	if !strings.HasPrefix(results[0].String(), "FileHandle-") {
		t.Fatalf("handle prints as %q", results[0])
	}
}

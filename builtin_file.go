// builtin_file.go
//
// File operations over the interpreter's afero filesystem. file-open!
// hands out a grounded FileHandle; every handle is tracked on the
// interpreter so Close releases anything a script forgot.
//
// Mode string characters for file-open!:
//
//	r  read
//	w  write
//	c  create if missing (requires w)
//	a  append (requires w)
//	t  truncate (requires w)

package metta

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileHandle is the grounded value wrapping an open file. Handles compare
// by identity: two opens of the same path are distinct atoms.
type FileHandle struct {
	file     afero.File
	path     string
	readable bool
	writable bool
}

func (h *FileHandle) TypeName() string { return "FileHandle" }

func (h *FileHandle) Equal(other GroundedValue) bool {
	o, ok := other.(*FileHandle)
	return ok && o == h
}

func (h *FileHandle) String() string { return "FileHandle-" + h.path }

func (h *FileHandle) Close() error { return h.file.Close() }

func asFileHandle(a Atom) (*FileHandle, error) {
	if g, ok := a.(GroundedAtom); ok {
		if h, ok := g.Value.(*FileHandle); ok {
			return h, nil
		}
	}
	return nil, errors.Errorf("expected a file handle, got %s", a)
}

func asStr(a Atom) (string, error) {
	if g, ok := a.(GroundedAtom); ok {
		if s, ok := g.Value.(Str); ok {
			return s.S, nil
		}
	}
	return "", errors.Errorf("expected a string, got %s", a)
}

// parseFileMode turns a mode string into open flags and the handle's
// read/write capabilities.
func parseFileMode(mode string) (flags int, readable, writable bool, err error) {
	var create, appendTo, truncate bool
	for _, c := range mode {
		switch c {
		case 'r':
			readable = true
		case 'w':
			writable = true
		case 'c':
			create = true
		case 'a':
			appendTo = true
		case 't':
			truncate = true
		default:
			return 0, false, false, errors.Errorf("unknown file mode character %q in %q", c, mode)
		}
	}
	if !readable && !writable {
		return 0, false, false, errors.Errorf("file mode %q opens for neither reading nor writing", mode)
	}
	if (create || appendTo || truncate) && !writable {
		return 0, false, false, errors.Errorf("file mode %q requires w", mode)
	}
	switch {
	case readable && writable:
		flags = os.O_RDWR
	case writable:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if create {
		flags |= os.O_CREATE
	}
	if appendTo {
		flags |= os.O_APPEND
	}
	if truncate {
		flags |= os.O_TRUNC
	}
	return flags, readable, writable, nil
}

func registerFileOperations(ip *Interpreter) error {
	return registerOps(ip, map[string]OpSpec{
		// file-open!(path, mode) -> FileHandle
		"file-open!": {
			MinArgs: 2, MaxArgs: 2,
			Doc: `Open a file. Mode is a string of r, w, c, a, t characters.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				path, err := asStr(args[0])
				if err != nil {
					return nil, err
				}
				mode, err := asStr(args[1])
				if err != nil {
					return nil, err
				}
				flags, readable, writable, err := parseFileMode(mode)
				if err != nil {
					return nil, err
				}
				ipr := ctx.Interpreter()
				f, err := ipr.Fs.OpenFile(path, flags, 0o644)
				if err != nil {
					return nil, errors.Wrapf(err, "file-open! %s", path)
				}
				h := &FileHandle{file: f, path: path, readable: readable, writable: writable}
				ipr.TrackResource(h)
				return []Atom{G(h)}, nil
			},
		},

		// file-close!(handle) -> Unit
		"file-close!": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Close a file handle and stop tracking it.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				ctx.Interpreter().ReleaseResource(h)
				if err := h.Close(); err != nil {
					return nil, errors.Wrapf(err, "file-close! %s", h.path)
				}
				return []Atom{UnitAtom()}, nil
			},
		},

		// file-read-to-string!(handle) -> String; reads from the current
		// position to the end.
		"file-read-to-string!": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Read the rest of the file into a string.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				if !h.readable {
					return nil, errors.Errorf("file %s is not open for reading", h.path)
				}
				data, err := io.ReadAll(h.file)
				if err != nil {
					return nil, errors.Wrapf(err, "file-read-to-string! %s", h.path)
				}
				return []Atom{NewStr(string(data))}, nil
			},
		},

		// file-write!(handle, content) -> Unit. Strings write their raw
		// bytes; any other atom writes its printed form.
		"file-write!": {
			MinArgs: 2, MaxArgs: 2,
			Doc: `Write an atom to the file. Strings write unquoted.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				if !h.writable {
					return nil, errors.Errorf("file %s is not open for writing", h.path)
				}
				text := args[1].String()
				if g, ok := args[1].(GroundedAtom); ok {
					if s, ok := g.Value.(Str); ok {
						text = s.S
					}
				}
				if _, err := h.file.WriteString(text); err != nil {
					return nil, errors.Wrapf(err, "file-write! %s", h.path)
				}
				return []Atom{UnitAtom()}, nil
			},
		},

		// file-seek!(handle, offset) -> Unit; offset from the start.
		"file-seek!": {
			MinArgs: 2, MaxArgs: 2,
			Doc: `Move the file position to an absolute offset.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				off, err := asNumber(args[1])
				if err != nil {
					return nil, err
				}
				if off.IsFloat || off.I < 0 {
					return nil, errors.Errorf("file-seek! expects a non-negative integer offset, got %s", args[1])
				}
				if _, err := h.file.Seek(off.I, io.SeekStart); err != nil {
					return nil, errors.Wrapf(err, "file-seek! %s", h.path)
				}
				return []Atom{UnitAtom()}, nil
			},
		},

		// file-read-exact!(handle, n) -> String of at most n bytes. A short
		// read near the end of the file is not an error.
		"file-read-exact!": {
			MinArgs: 2, MaxArgs: 2,
			Doc: `Read up to n bytes from the current position.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				if !h.readable {
					return nil, errors.Errorf("file %s is not open for reading", h.path)
				}
				n, err := asNumber(args[1])
				if err != nil {
					return nil, err
				}
				if n.IsFloat || n.I < 0 {
					return nil, errors.Errorf("file-read-exact! expects a non-negative integer count, got %s", args[1])
				}
				count := n.I
				// cap the buffer at the bytes actually left in the file, so
				// an oversized count cannot force a huge allocation
				info, err := h.file.Stat()
				if err != nil {
					return nil, errors.Wrapf(err, "file-read-exact! %s", h.path)
				}
				pos, err := h.file.Seek(0, io.SeekCurrent)
				if err != nil {
					return nil, errors.Wrapf(err, "file-read-exact! %s", h.path)
				}
				if remaining := info.Size() - pos; count > remaining {
					count = remaining
				}
				if count < 0 {
					count = 0
				}
				buf := make([]byte, count)
				read, err := io.ReadFull(h.file, buf)
				if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, errors.Wrapf(err, "file-read-exact! %s", h.path)
				}
				return []Atom{NewStr(string(buf[:read]))}, nil
			},
		},

		// file-get-size!(handle) -> Number
		"file-get-size!": {
			MinArgs: 1, MaxArgs: 1,
			Doc: `Size of the file in bytes.`,
			Impl: func(ctx *OpContext, args []Atom) ([]Atom, error) {
				h, err := asFileHandle(args[0])
				if err != nil {
					return nil, err
				}
				info, err := h.file.Stat()
				if err != nil {
					return nil, errors.Wrapf(err, "file-get-size! %s", h.path)
				}
				return []Atom{NewInt(info.Size())}, nil
			},
		},
	})
}

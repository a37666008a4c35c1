// Package source loads script text for a session.
package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wippyai/jsbridge/errors"
)

// BufferLabel is the resource name used for in-memory scripts.
const BufferLabel = "_membuf.js_"

// Loader resolves a script name to its source and the label used in
// diagnostics and stack traces.
type Loader interface {
	Load(ctx context.Context, name string) (src []byte, label string, err error)
}

// FileLoader reads scripts from a file system. A nil FS reads the host
// file system. The label is the file's base name.
type FileLoader struct {
	FS fs.FS
}

// Load reads name.
func (l FileLoader) Load(ctx context.Context, name string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", errors.Load("load "+name, err)
	}
	if name == "" {
		return nil, "", errors.InvalidInput(errors.PhaseLoad, "script path cannot be empty")
	}

	var (
		src []byte
		err error
	)
	if l.FS != nil {
		src, err = fs.ReadFile(l.FS, filepath.ToSlash(name))
	} else {
		src, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, "", errors.Load("read "+name, err)
	}
	return src, filepath.Base(name), nil
}

// Buffer serves one in-memory script under BufferLabel, whatever the name.
type Buffer []byte

// Load returns the buffer.
func (b Buffer) Load(context.Context, string) ([]byte, string, error) {
	return []byte(b), BufferLabel, nil
}

// Map serves scripts from memory keyed by name. Labels are base names.
type Map map[string][]byte

// Load returns the script stored under name.
func (m Map) Load(_ context.Context, name string) ([]byte, string, error) {
	src, ok := m[name]
	if !ok {
		return nil, "", errors.NotFound(errors.PhaseLoad, "script", name)
	}
	return src, filepath.Base(name), nil
}

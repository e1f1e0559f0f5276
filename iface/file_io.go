package iface

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
)

// FileIO returns an Interface exposing read_file, write_file, and
// list_dir, scoped beneath root. Grounded on the source's
// core/interface/server/file_io.py; the sandboxing (path traversal
// rejection) is this port's addition since the source relied on the
// calling process's OS-level permissions alone.
func FileIO(root string) *Interface {
	resolve := func(name string) (string, error) {
		full := filepath.Join(root, name)
		if !strings.HasPrefix(full, filepath.Clean(root)+string(os.PathSeparator)) && full != filepath.Clean(root) {
			return "", errors.New(errors.KindBadCommandArgs, "path %q escapes the file-io root", name)
		}
		return full, nil
	}

	return New("file_io", func(r *command.Registry) error {
		if _, err := r.Register("read_file", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name, err := stringArg(args, "read_file")
			if err != nil {
				return nil, err
			}
			full, err := resolve(name)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, errors.Wrap(errors.KindBadCommandArgs, err, "read_file: %s", name)
			}
			return string(data), nil
		}, command.WithDoc("Read a file's contents beneath the file-io root.")); err != nil {
			return err
		}

		if _, err := r.Register("write_file", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			if len(args) != 2 {
				return nil, errors.New(errors.KindBadCommandArgs, "write_file: expected (name, contents)")
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, errors.New(errors.KindBadCommandArgs, "write_file: name must be a string")
			}
			contents, ok := args[1].(string)
			if !ok {
				return nil, errors.New(errors.KindBadCommandArgs, "write_file: contents must be a string")
			}
			full, err := resolve(name)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return nil, errors.Wrap(errors.KindBadCommandArgs, err, "write_file: %s", name)
			}
			if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
				return nil, errors.Wrap(errors.KindBadCommandArgs, err, "write_file: %s", name)
			}
			return nil, nil
		}, command.WithDoc("Write a file's contents beneath the file-io root.")); err != nil {
			return err
		}

		if _, err := r.Register("list_dir", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name := "."
			if len(args) == 1 {
				s, ok := args[0].(string)
				if !ok {
					return nil, errors.New(errors.KindBadCommandArgs, "list_dir: name must be a string")
				}
				name = s
			}
			full, err := resolve(name)
			if err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(full)
			if err != nil {
				return nil, errors.Wrap(errors.KindBadCommandArgs, err, "list_dir: %s", name)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		}, command.WithDoc("List a directory's entries beneath the file-io root.")); err != nil {
			return err
		}

		return nil
	})
}

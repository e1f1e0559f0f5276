package iface

import (
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
)

// Logging returns an Interface exposing set_log_level/get_log_level,
// wired to the given closures so this package stays decoupled from any
// particular logger implementation. Grounded on the source's
// core/interface/server/server_logging.py.
func Logging(setLevel func(level string) error, getLevel func() string) *Interface {
	return New("logging", func(r *command.Registry) error {
		if _, err := r.Register("set_log_level", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			level, err := stringArg(args, "set_log_level")
			if err != nil {
				return nil, err
			}
			if err := setLevel(level); err != nil {
				return nil, errors.Wrap(errors.KindBadCommandArgs, err, "set_log_level: %s", level)
			}
			return nil, nil
		}, command.WithDoc("Set the server's log level (debug/info/warn/error).")); err != nil {
			return err
		}

		if _, err := r.Register("get_log_level", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			return getLevel(), nil
		}, command.WithDoc("Return the server's current log level.")); err != nil {
			return err
		}

		return nil
	})
}

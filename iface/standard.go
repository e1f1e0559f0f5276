package iface

import (
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
)

// Standard returns the built-in interface every server registers by
// default: list_commands, command_help, command_info, command_exists,
// disconnect_client, shutdown, implemented_interfaces, and
// implements_interface. Grounded on the source's
// core/interface/server/standard.py.
func Standard(host Host) *Interface {
	return New("standard", func(r *command.Registry) error {
		reg := func(key string, fn command.Callable, opts ...command.Option) error {
			_, err := r.Register(key, fn, opts...)
			return err
		}

		if err := reg("list_commands", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			return host.Registry().Names(), nil
		}, command.WithDoc("List every publicly invocable command.")); err != nil {
			return err
		}

		if err := reg("command_help", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name, err := stringArg(args, "command_help")
			if err != nil {
				return nil, err
			}
			cmd, _, ok := host.Registry().Resolve(name)
			if !ok || cmd.Private {
				return nil, errors.New(errors.KindCommandNotFound, "no such command: %s", name)
			}
			return cmd.Doc, nil
		}, command.WithDoc("Return the documentation string for a command.")); err != nil {
			return err
		}

		if err := reg("command_info", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name, err := stringArg(args, "command_info")
			if err != nil {
				return nil, err
			}
			cmd, _, ok := host.Registry().Resolve(name)
			if !ok || cmd.Private {
				return nil, errors.New(errors.KindCommandNotFound, "no such command: %s", name)
			}
			return map[string]any{
				"key":                 cmd.Key,
				"aliases":             cmd.Aliases,
				"former_aliases":      cmd.FormerAliases,
				"private":             cmd.Private,
				"returns_status_code": cmd.ReturnsStatusCode,
				"takes_header_data":   cmd.TakesHeaderData,
				"doc":                 cmd.Doc,
			}, nil
		}, command.WithDoc("Return registration metadata for a command.")); err != nil {
			return err
		}

		if err := reg("command_exists", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name, err := stringArg(args, "command_exists")
			if err != nil {
				return nil, err
			}
			cmd, _, ok := host.Registry().Resolve(name)
			return ok && !cmd.Private, nil
		}, command.WithDoc("Report whether a publicly invocable command exists.")); err != nil {
			return err
		}

		if err := reg("disconnect_client", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			addr, err := stringArg(args, "disconnect_client")
			if err != nil {
				return nil, err
			}
			return host.DisconnectClient(addr), nil
		}, command.WithDoc("Forcibly close the session for the given peer address.")); err != nil {
			return err
		}

		if err := reg("shutdown", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			host.Shutdown()
			return nil, nil
		}, command.WithDoc("Stop accepting connections and shut the server down.")); err != nil {
			return err
		}

		if err := reg("implemented_interfaces", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			return host.InterfaceNames(), nil
		}, command.WithDoc("List every Interface bundle registered on this server.")); err != nil {
			return err
		}

		if err := reg("implements_interface", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			name, err := stringArg(args, "implements_interface")
			if err != nil {
				return nil, err
			}
			for _, n := range host.InterfaceNames() {
				if n == name {
					return true, nil
				}
			}
			return false, nil
		}, command.WithDoc("Report whether an Interface bundle of the given name is registered.")); err != nil {
			return err
		}

		return nil
	})
}

func stringArg(args []any, command string) (string, error) {
	if len(args) != 1 {
		return "", errors.New(errors.KindBadCommandArgs, "%s: expected exactly one argument", command)
	}
	s, ok := args[0].(string)
	if !ok {
		return "", errors.New(errors.KindBadCommandArgs, "%s: expected a string argument, got %T", command, args[0])
	}
	return s, nil
}

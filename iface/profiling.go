package iface

import (
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/errors"
)

// Profiling returns an Interface exposing command_profile_summary, an
// ad hoc counterpart to the Profiling stock adapter's automatic
// per-response summary: a running command can call it on its own txid
// to see its own elapsed time so far. Grounded on the source's
// core/interface/server/server_profiling.py.
func Profiling(lookup func(txid string) (map[string]any, bool)) *Interface {
	return New("profiling", func(r *command.Registry) error {
		_, err := r.Register("command_profile_summary", func(ctx *command.Context, args []any, kwargs map[string]any) (any, error) {
			summary, ok := lookup(string(ctx.TxID))
			if !ok {
				return nil, errors.New(errors.KindCommandNotFound, "no profiling summary recorded for this transaction yet")
			}
			return summary, nil
		}, command.WithDoc("Return the profiling summary recorded so far for the calling transaction."))
		return err
	})
}

package command

import (
	"encoding/json"
	"reflect"

	"github.com/wgnet/clacks/errors"
)

// EnforceTypes rejects positional arguments whose runtime type does
// not match the command's declared Signature.Params, without
// attempting conversion.
func EnforceTypes() ArgProcessor {
	return func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		for i, a := range args {
			if i >= len(cmd.Signature.Params) {
				break
			}
			want := cmd.Signature.Params[i].Type
			if want == nil || a == nil {
				continue
			}
			if got := reflect.TypeOf(a); got != want {
				return nil, nil, errors.New(errors.KindBadCommandArgs,
					"command %q: argument %d: expected %s, got %s", cmd.Key, i, want, got)
			}
		}
		return args, kwargs, nil
	}
}

// AutoConvert converts positional arguments to the command's declared
// parameter types where a conversion exists (e.g. int64 -> int,
// float64 -> int), leaving already-matching arguments untouched.
func AutoConvert() ArgProcessor {
	return func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		out := make([]any, len(args))
		for i, a := range args {
			if i >= len(cmd.Signature.Params) || a == nil {
				out[i] = a
				continue
			}
			want := cmd.Signature.Params[i].Type
			if want == nil {
				out[i] = a
				continue
			}
			av := reflect.ValueOf(a)
			if av.Type() == want {
				out[i] = a
				continue
			}
			if av.Type().ConvertibleTo(want) {
				out[i] = av.Convert(want).Interface()
				continue
			}
			return nil, nil, errors.New(errors.KindBadCommandArgs,
				"command %q: argument %d: cannot convert %s to %s", cmd.Key, i, av.Type(), want)
		}
		return out, kwargs, nil
	}
}

// StripUnrecognizedKwargs removes any kwargs entry whose name is not a
// declared parameter, rather than letting it flow through to Callable.
func StripUnrecognizedKwargs() ArgProcessor {
	return func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		known := make(map[string]bool, len(cmd.Signature.Params))
		for _, p := range cmd.Signature.Params {
			known[p.Name] = true
		}
		out := make(map[string]any, len(kwargs))
		for k, v := range kwargs {
			if known[k] {
				out[k] = v
			}
		}
		return args, out, nil
	}
}

// KwargsFromJSON treats a single string positional argument as a JSON
// object and extracts its fields into kwargs, leaving args empty. Used
// by thin clients that can only send one positional payload.
func KwargsFromJSON() ArgProcessor {
	return func(cmd *Command, args []any, kwargs map[string]any) ([]any, map[string]any, error) {
		if len(args) != 1 {
			return args, kwargs, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return args, kwargs, nil
		}
		var extracted map[string]any
		if err := json.Unmarshal([]byte(s), &extracted); err != nil {
			return nil, nil, errors.Wrap(errors.KindBadCommandArgs, err,
				"command %q: single positional argument is not valid JSON kwargs", cmd.Key)
		}
		merged := make(map[string]any, len(kwargs)+len(extracted))
		for k, v := range kwargs {
			merged[k] = v
		}
		for k, v := range extracted {
			merged[k] = v
		}
		return nil, merged, nil
	}
}

// EnforceReturnType rejects a return value whose runtime type does not
// match the command's declared Signature.Returns.
func EnforceReturnType() ResultProcessor {
	return func(cmd *Command, value any) (any, error) {
		if cmd.Signature.Returns == nil || value == nil {
			return value, nil
		}
		if got := reflect.TypeOf(value); got != cmd.Signature.Returns {
			return nil, errors.New(errors.KindUnexpectedReturnType,
				"command %q: expected return type %s, got %s", cmd.Key, cmd.Signature.Returns, got)
		}
		return value, nil
	}
}

// JSONEncodeResult marshals the return value to a JSON string, for
// commands whose clients expect a pre-serialized payload rather than a
// structured value.
func JSONEncodeResult() ResultProcessor {
	return func(cmd *Command, value any) (any, error) {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(errors.KindBadResponse, err, "command %q: JSON-encoding result", cmd.Key)
		}
		return string(b), nil
	}
}

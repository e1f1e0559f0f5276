// Package errors defines the closed set of error kinds the clacks
// framework can raise, and the status codes they map to on the wire.
//
// This replaces the source's raise/except control flow with a sum-typed
// result: every failure inside the dispatcher, handler, or proxy carries
// a Kind drawn from this registry, and every Kind maps to exactly one
// status Code (several kinds can share a code).
package errors

import "fmt"

// Code is a wire status code, per the table in section 6 of the
// specification this framework implements.
type Code int

const (
	NotRun                    Code = 0
	OK                        Code = 200
	Deprecated                Code = 201
	ConnectionRejected        Code = 400
	NotFound                  Code = 404
	AccessDenied              Code = 405
	ServerError               Code = 500
	BadHeader                 Code = 501
	MarshalError              Code = 502
	UnmarshalError            Code = 503
	BadQuestion               Code = 504
	BadResponse               Code = 505
	UnhandledException        Code = 600
	InvalidCommandReturnType  Code = 621
	InvalidCommandArguments   Code = 622
)

// Kind is a closed registry key naming an error category. Kinds are
// stable identifiers: they travel over the wire in Response.TracebackType
// so a remote client can recover the original failure category.
type Kind string

const (
	KindUnrecognizedAlias     Kind = "unrecognized_alias"
	KindBadCommandArgs        Kind = "bad_command_args"
	KindUnexpectedReturnType  Kind = "unexpected_return_type"
	KindCommandIsPrivate      Kind = "command_is_private"
	KindClientConnectionFailed Kind = "client_connection_failed"
	KindCommandNotFound       Kind = "command_not_found"
	KindBadArgProcessorOutput Kind = "bad_arg_processor_output"
	KindBadResponse           Kind = "bad_response"
	KindBadHeader             Kind = "bad_header"
	KindMarshalError          Kind = "marshal_error"
	KindUnmarshalError        Kind = "unmarshal_error"
	KindBadQuestion           Kind = "bad_question"
	KindAliasCollision        Kind = "alias_collision"
	KindTimeout               Kind = "timeout"
	KindUnhandled             Kind = "unhandled_exception"
)

// codeByKind maps each Kind to its wire Code, as described in section 7
// of the specification. Several kinds share a code (for example both
// not-found kinds map to NotFound). A Kind not present here is a
// programming error and falls back to UnhandledException.
var codeByKind = map[Kind]Code{
	KindUnrecognizedAlias:      NotFound,
	KindBadCommandArgs:         InvalidCommandArguments,
	KindUnexpectedReturnType:   InvalidCommandReturnType,
	KindCommandIsPrivate:       AccessDenied,
	KindClientConnectionFailed: ConnectionRejected,
	KindCommandNotFound:        NotFound,
	KindBadArgProcessorOutput:  BadResponse,
	KindBadResponse:            BadResponse,
	KindBadHeader:              BadHeader,
	KindMarshalError:           MarshalError,
	KindUnmarshalError:         UnmarshalError,
	KindBadQuestion:            BadQuestion,
	KindAliasCollision:         ServerError,
	KindTimeout:                UnhandledException,
	KindUnhandled:              UnhandledException,
}

// CodeFor returns the wire status code for kind, defaulting to
// UnhandledException for an unregistered kind.
func CodeFor(kind Kind) Code {
	if c, ok := codeByKind[kind]; ok {
		return c
	}
	return UnhandledException
}

// Error is the framework's error type. It always carries a Kind (hence
// a wire Code) and a human-readable Message, and may wrap an underlying
// cause for local debugging; the cause is never sent over the wire,
// only its textual rendering (see Response.Traceback in package message).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code reports the wire status code for this error's Kind.
func (e *Error) Code() Code { return CodeFor(e.Kind) }

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that carries cause for
// local inspection (e.g. logging) without putting cause's message on
// the wire verbatim.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindFromKey looks up a Kind by its wire name (the registry key sent
// as Response.TracebackType), falling back to KindUnhandled. Used by
// the client proxy to re-raise an error of the right kind.
func KindFromKey(key string) Kind {
	k := Kind(key)
	if _, ok := codeByKind[k]; ok {
		return k
	}
	return KindUnhandled
}

// Command clacksctl is an ad hoc client: it connects to one clacks
// server, sends a single question, prints the response as JSON, and
// exits. Useful for poking at a running server from a shell the way
// curl pokes at an HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wgnet/clacks/client"
	"github.com/wgnet/clacks/handler"
	"github.com/wgnet/clacks/marshaller"
)

var cli struct {
	Addr    string        `arg:"" help:"server address, host:port"`
	Command string        `arg:"" help:"command name to invoke"`
	Args    []string      `arg:"" optional:"" help:"positional arguments, each parsed as JSON if possible, else kept as a string"`
	Dialect string        `default:"json" help:"wire dialect: simple, json, or xml"`
	Timeout time.Duration `default:"10s" help:"how long to wait for a response"`
}

func main() {
	kong.Parse(&cli)

	h, err := buildHandler(cli.Dialect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clacksctl: %v\n", err)
		os.Exit(1)
	}

	p := client.New(cli.Addr, h, nil)
	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	if err := p.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "clacksctl: connect: %v\n", err)
		os.Exit(1)
	}
	defer p.Disconnect()

	args := parseArgs(cli.Args)
	resp, err := p.TimedQuestion(ctx, cli.Timeout, cli.Command, args, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clacksctl: question: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "clacksctl: encode response: %v\n", err)
		os.Exit(1)
	}
	if resp.Code != 200 {
		os.Exit(1)
	}
}

func buildHandler(dialect string) (*handler.Handler, error) {
	cfg := handler.DefaultConfig()
	switch dialect {
	case "simple":
		return handler.New("simple", handler.NewSimpleHeaderCodec(), marshaller.NewSimple(), cfg), nil
	case "json":
		return handler.New("json", handler.NewJSONHeaderCodec(), marshaller.NewJSON(), cfg), nil
	case "xml":
		return handler.New("xml", handler.NewXMLHeaderCodec(), marshaller.NewJSON(), cfg), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
}

// parseArgs turns each raw CLI argument into a JSON value when it
// parses as one (numbers, booleans, quoted strings, objects, arrays),
// falling back to the raw string otherwise, so plain words don't need
// to be quoted on the shell.
func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, a := range raw {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err == nil {
			out[i] = v
		} else {
			out[i] = a
		}
	}
	return out
}

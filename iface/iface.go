// Package iface implements Interface: a bundle of related commands
// registered onto a server (or client) as a unit, the way the source's
// core/interface/base.py groups commands for registration.
package iface

import (
	"github.com/wgnet/clacks/command"
)

// Interface is a named bundle of commands. Register applies every
// command in the bundle to r; it is called once at server bring-up.
type Interface struct {
	Name     string
	Register func(r *command.Registry) error
}

// New builds an Interface named name whose commands are installed by register.
func New(name string, register func(r *command.Registry) error) *Interface {
	return &Interface{Name: name, Register: register}
}

// Host is the subset of server.Server that the standard interface's
// introspection and control commands need. Declaring it here (rather
// than importing package server) keeps the dependency one-way: server
// depends on iface, not the reverse, per the specification's "one-way
// references" design rule for server/handler/marshaller/adapter/interface
// ownership.
type Host interface {
	Registry() *command.Registry
	InterfaceNames() []string
	DisconnectClient(address string) bool
	Shutdown()
}

package handler

// Registry is a constructor-time map from dialect name to Handler,
// mirroring marshaller.Registry's "explicit, wired-in-config registry"
// shape.
type Registry map[string]*Handler

// NewRegistry builds a Registry from the given handlers, keyed by
// their own Name().
func NewRegistry(handlers ...*Handler) Registry {
	r := make(Registry, len(handlers))
	for _, h := range handlers {
		r[h.Name()] = h
	}
	return r
}

// Get looks up a handler by dialect name.
func (r Registry) Get(name string) (*Handler, bool) {
	h, ok := r[name]
	return h, ok
}

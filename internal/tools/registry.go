package tools

import "sort"

// Registry holds the tools built for one user.
type Registry struct {
	tools map[string]*Tool
}

func newRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Get returns a tool by exposed name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.tools) }

// Definitions returns listing definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, name := range r.Names() {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

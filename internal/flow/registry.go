package flow

import "slices"

// Registry collects declared flows in declaration order.
//
// Loaders and DSL callers append to a Registry; the runner reads it. A
// Registry is created per invocation, so nothing has to be cleared between
// runs.
type Registry struct {
	flows []*Flow
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers existing flows.
func (r *Registry) Add(flows ...*Flow) {
	r.flows = append(r.flows, flows...)
}

// Flows returns the registered flows in declaration order. The slice is a
// copy; the flows are shared.
func (r *Registry) Flows() []*Flow {
	return slices.Clone(r.flows)
}

// Len returns the number of registered flows.
func (r *Registry) Len() int {
	return len(r.flows)
}

// Target returns a declaration handle whose flows share baseURL.
func (r *Registry) Target(baseURL string) *Target {
	return &Target{registry: r, baseURL: baseURL}
}

// Target declares flows against one base URL.
type Target struct {
	registry *Registry
	baseURL  string
}

// BaseURL returns the target's base URL.
func (t *Target) BaseURL() string {
	return t.baseURL
}

// Flow creates a flow and registers it immediately.
func (t *Target) Flow(name string) *Flow {
	f := New(name, t.baseURL)
	t.registry.Add(f)
	return f
}

package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/sherpa/internal/llm"
)

// DefaultAgents are used when no agent names are configured.
var DefaultAgents = []string{"architect", "security"}

// Factory builds an agent around an LLM client.
type Factory func(llm.Client) Agent

// UnknownAgentError is returned for an agent name the registry does not know.
type UnknownAgentError struct {
	Name      string
	Available []string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Registry maps agent names to factories. It is read-only after construction.
type Registry struct {
	factories map[string]Factory
	infos     map[string]string
}

// NewRegistry returns a registry holding the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}, infos: map[string]string{}}
	for _, p := range []perspective{
		architectPerspective,
		securityPerspective,
		performancePerspective,
		juniorPerspective,
	} {
		r.factories[p.name] = newAgent(p)
		r.infos[p.name] = p.description
	}
	return r
}

// Get builds the named agent. Lookup ignores case and surrounding space.
func (r *Registry) Get(name string, client llm.Client) (Agent, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	f, ok := r.factories[key]
	if !ok {
		return nil, &UnknownAgentError{Name: name, Available: r.Available()}
	}
	return f(client), nil
}

// Available returns the registered agent names, sorted.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a registered agent.
func (r *Registry) Describe(name string) (string, bool) {
	d, ok := r.infos[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

package stage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tome/internal/catalog"
)

// Definition describes one pipeline stage: identity, prerequisites, and the
// resolved retry budget. Zero MaxAttempts means a single attempt. Only
// idempotent stages earn completion markers; a stage without the flag re-runs
// on every attempt, even for unchanged content.
type Definition struct {
	Name         string
	DisplayName  string
	Requires     []string
	Idempotent   bool
	MaxAttempts  int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Registration pairs a definition with its handler for registry construction.
type Registration struct {
	Definition Definition
	Handler    Handler
}

// Registry is the immutable stage graph the workflow schedules from. All
// validation happens in NewRegistry; after it returns the graph never
// changes.
type Registry struct {
	defs       map[string]Definition
	handlers   map[string]Handler
	order      []string
	dependents map[string][]string
}

// NewRegistry validates the stage graph and freezes it. Unknown prerequisite
// names, duplicate stages, missing handlers, and dependency cycles are
// configuration errors that abort startup.
func NewRegistry(regs ...Registration) (*Registry, error) {
	if len(regs) == 0 {
		return nil, fmt.Errorf("stage registry: no stages registered")
	}

	defs := make(map[string]Definition, len(regs))
	handlers := make(map[string]Handler, len(regs))
	for _, reg := range regs {
		name := strings.TrimSpace(reg.Definition.Name)
		if name == "" {
			return nil, fmt.Errorf("stage registry: stage with empty name")
		}
		if _, exists := defs[name]; exists {
			return nil, fmt.Errorf("stage registry: duplicate stage %q", name)
		}
		if reg.Handler == nil {
			return nil, fmt.Errorf("stage registry: stage %q has no handler", name)
		}
		def := reg.Definition
		def.Name = name
		if strings.TrimSpace(def.DisplayName) == "" {
			def.DisplayName = name
		}
		defs[name] = def
		handlers[name] = reg.Handler
	}

	dependents := make(map[string][]string, len(defs))
	inDegree := make(map[string]int, len(defs))
	for name := range defs {
		dependents[name] = nil
		inDegree[name] = 0
	}
	for name, def := range defs {
		for _, req := range def.Requires {
			if req == name {
				return nil, fmt.Errorf("stage registry: stage %q requires itself", name)
			}
			if _, known := defs[req]; !known {
				return nil, fmt.Errorf("stage registry: stage %q requires unknown stage %q", name, req)
			}
			dependents[req] = append(dependents[req], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm: topological order doubles as cycle detection. The
	// queue stays name-sorted so the order is deterministic.
	queue := make([]string, 0, len(defs))
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	order := make([]string, 0, len(defs))
	for len(queue) > 0 {
		sort.Strings(queue)
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if len(order) != len(defs) {
		var cycle []string
		for name, degree := range inDegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("stage registry: dependency cycle involving %s", strings.Join(cycle, ", "))
	}

	return &Registry{
		defs:       defs,
		handlers:   handlers,
		order:      order,
		dependents: dependents,
	}, nil
}

// Names returns every stage name in topological order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns every definition in topological order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Definition looks up a stage definition by name.
func (r *Registry) Definition(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Handler looks up the handler registered for a stage. Registered handlers
// are never nil.
func (r *Registry) Handler(name string) Handler {
	return r.handlers[name]
}

// Roots returns the stages with no prerequisites, in topological order.
func (r *Registry) Roots() []string {
	var roots []string
	for _, name := range r.order {
		if len(r.defs[name].Requires) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// ReadyStages returns the stages that may be dispatched right now: every
// prerequisite satisfied (success or skipped), the stage itself not terminal,
// not running, and past any scheduled retry time. Missing state rows count as
// pending and due. The result keeps topological order.
func (r *Registry) ReadyStages(now time.Time, states map[string]*catalog.StageState) []string {
	var ready []string
	for _, name := range r.order {
		state := states[name]
		if state != nil {
			if state.Result.Terminal() || state.Result == catalog.ResultRunning {
				continue
			}
			if !state.Due(now) {
				continue
			}
		}
		if r.requiresSatisfied(name, states) {
			ready = append(ready, name)
		}
	}
	return ready
}

// Dependents returns the transitive closure of stages downstream of name, in
// topological order. These are the stages that can never run once name fails
// permanently.
func (r *Registry) Dependents(name string) []string {
	closure := make(map[string]bool)
	var visit func(string)
	visit = func(current string) {
		for _, dependent := range r.dependents[current] {
			if !closure[dependent] {
				closure[dependent] = true
				visit(dependent)
			}
		}
	}
	visit(name)

	var out []string
	for _, candidate := range r.order {
		if closure[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

// AllSatisfied reports whether every stage satisfies its dependents, which
// is the document-completed condition.
func (r *Registry) AllSatisfied(states map[string]*catalog.StageState) bool {
	for _, name := range r.order {
		state := states[name]
		if state == nil || !state.Result.Satisfies() {
			return false
		}
	}
	return true
}

// AllTerminal reports whether every stage reached a final result, satisfied
// or not. Combined with a false AllSatisfied this is the document-failed
// condition.
func (r *Registry) AllTerminal(states map[string]*catalog.StageState) bool {
	for _, name := range r.order {
		state := states[name]
		if state == nil || !state.Result.Terminal() {
			return false
		}
	}
	return true
}

func (r *Registry) requiresSatisfied(name string, states map[string]*catalog.StageState) bool {
	for _, req := range r.defs[name].Requires {
		state := states[req]
		if state == nil || !state.Result.Satisfies() {
			return false
		}
	}
	return true
}

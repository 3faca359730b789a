// Package guard defines policy rules over Invocations and the ordered
// registry that evaluates them. Evaluation order is a pure function of
// priority and registration order; trigger failures resolve to a block.
package guard

import (
	"fmt"
	"sort"

	"github.com/hookgate/hookgate/internal/invocation"
)

// Policy is a guard's default decision in non-interactive mode.
type Policy string

const (
	PolicyAllow Policy = "allow"
	PolicyBlock Policy = "block"
)

// Class separates rules that can block an invocation from advisory
// reminders that never do.
type Class string

const (
	Blocking Class = "blocking"
	Advisory Class = "advisory"
)

// Guard is one named policy rule. Guards are stateless: Trigger must return
// the same verdict for the same Invocation regardless of call order, and
// must not retain references to prior invocations.
type Guard struct {
	Name       string
	Priority   int // lower evaluates first
	Class      Class
	Bypassable bool
	Default    Policy
	Trigger    func(*invocation.Invocation) bool
	Explain    func(*invocation.Invocation) string
}

// AdvisoryNote is one triggered advisory guard's reminder.
type AdvisoryNote struct {
	Name    string
	Message string
}

// Evaluation is the registry's verdict for one Invocation.
type Evaluation struct {
	// Blocked is the first triggered blocking guard in priority order,
	// nil when no blocking guard triggered.
	Blocked *Guard
	// TriggerFailed marks a synthetic block: the guard's predicate
	// panicked and the failure was converted to "triggered".
	TriggerFailed bool
	// Message is the blocking guard's explanation (or a diagnostic for a
	// synthetic block).
	Message string
	// Advisories holds every triggered advisory guard, even when a
	// blocking guard short-circuited the remaining blocking rules.
	Advisories []AdvisoryNote
}

type registered struct {
	guard Guard
	seq   int
}

// Registry holds an ordered set of guards. Built once at startup,
// read-only during evaluation.
type Registry struct {
	guards []registered
	byName map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]bool)}
}

// Register adds a guard. Names are unique; Trigger and Explain are required.
func (r *Registry) Register(g Guard) error {
	if g.Name == "" {
		return fmt.Errorf("guard: name is required")
	}
	if r.byName[g.Name] {
		return fmt.Errorf("guard: duplicate name %q", g.Name)
	}
	if g.Trigger == nil || g.Explain == nil {
		return fmt.Errorf("guard %q: trigger and explain are required", g.Name)
	}
	if g.Class == "" {
		g.Class = Blocking
	}
	if g.Default == "" {
		g.Default = PolicyBlock
	}
	r.byName[g.Name] = true
	r.guards = append(r.guards, registered{guard: g, seq: len(r.guards)})
	return nil
}

// Guards returns the guards in evaluation order: ascending priority,
// ties broken by registration order. Never by map iteration order.
func (r *Registry) Guards() []Guard {
	sorted := make([]registered, len(r.guards))
	copy(sorted, r.guards)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].guard.Priority != sorted[j].guard.Priority {
			return sorted[i].guard.Priority < sorted[j].guard.Priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	out := make([]Guard, len(sorted))
	for i, reg := range sorted {
		out[i] = reg.guard
	}
	return out
}

// Lookup returns the guard with the given name.
func (r *Registry) Lookup(name string) (Guard, bool) {
	for _, reg := range r.guards {
		if reg.guard.Name == name {
			return reg.guard, true
		}
	}
	return Guard{}, false
}

// Evaluate runs the registry against one Invocation, sequentially. The
// first triggered blocking guard short-circuits the remaining blocking
// guards; advisory guards always run so their reminders are emitted even
// when a block occurs.
func (r *Registry) Evaluate(inv *invocation.Invocation) Evaluation {
	var ev Evaluation
	for _, g := range r.Guards() {
		if g.Class == Advisory {
			triggered, failed := safeTrigger(g, inv)
			if triggered && !failed {
				ev.Advisories = append(ev.Advisories, AdvisoryNote{
					Name:    g.Name,
					Message: safeExplain(g, inv),
				})
			}
			continue
		}
		if ev.Blocked != nil {
			continue
		}
		triggered, failed := safeTrigger(g, inv)
		if failed {
			blocked := g
			ev.Blocked = &blocked
			ev.TriggerFailed = true
			ev.Message = fmt.Sprintf("guard %q failed during evaluation; blocking as a precaution", g.Name)
			continue
		}
		if triggered {
			blocked := g
			ev.Blocked = &blocked
			ev.Message = safeExplain(g, inv)
		}
	}
	return ev
}

// safeTrigger runs a trigger predicate, converting a panic into
// (triggered=true, failed=true). Fail-closed: an internal pattern-matching
// failure is never "not triggered".
func safeTrigger(g Guard, inv *invocation.Invocation) (triggered, failed bool) {
	defer func() {
		if recover() != nil {
			triggered = true
			failed = true
		}
	}()
	return g.Trigger(inv), false
}

func safeExplain(g Guard, inv *invocation.Invocation) (msg string) {
	defer func() {
		if recover() != nil {
			msg = fmt.Sprintf("guard %q triggered", g.Name)
		}
	}()
	return g.Explain(inv)
}

package guard

import (
	"testing"

	"github.com/hookgate/hookgate/internal/invocation"
)

func bashInv(command string) *invocation.Invocation {
	return &invocation.Invocation{
		ID:       "inv-test",
		ToolName: "Bash",
		Command:  command,
		Source:   invocation.SourceStdinJSON,
	}
}

func namedGuard(name string, priority int, trigger bool) Guard {
	return Guard{
		Name:     name,
		Priority: priority,
		Trigger:  func(*invocation.Invocation) bool { return trigger },
		Explain:  func(*invocation.Invocation) string { return name + " triggered" },
	}
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(namedGuard("a", 1, false)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(namedGuard("a", 2, false)); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}

func TestRegisterRequiresTriggerAndExplain(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Guard{Name: "x"}); err == nil {
		t.Fatal("expected guard without trigger/explain to be rejected")
	}
}

func TestGuardsOrderedByPriorityThenRegistration(t *testing.T) {
	r := NewRegistry()
	// C has lower priority; A and B tie and must keep registration order.
	r.Register(namedGuard("a", 1, false))
	r.Register(namedGuard("b", 1, false))
	r.Register(namedGuard("c", 0, false))

	got := r.Guards()
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, got[i].Name)
		}
	}
}

func TestEvaluateFirstTriggeredBlockingGuardWins(t *testing.T) {
	r := NewRegistry()
	r.Register(namedGuard("low", 10, true))
	r.Register(namedGuard("high", 1, true))

	ev := r.Evaluate(bashInv("anything"))
	if ev.Blocked == nil {
		t.Fatal("expected a block")
	}
	if ev.Blocked.Name != "high" {
		t.Fatalf("expected highest-priority guard to win, got %q", ev.Blocked.Name)
	}
	if ev.Message != "high triggered" {
		t.Fatalf("unexpected message: %q", ev.Message)
	}
}

func TestEvaluateShortCircuitSkipsLaterBlockingGuards(t *testing.T) {
	calls := 0
	r := NewRegistry()
	r.Register(namedGuard("first", 1, true))
	r.Register(Guard{
		Name:     "second",
		Priority: 2,
		Trigger: func(*invocation.Invocation) bool {
			calls++
			return true
		},
		Explain: func(*invocation.Invocation) string { return "second" },
	})

	ev := r.Evaluate(bashInv("anything"))
	if ev.Blocked.Name != "first" {
		t.Fatalf("expected first guard to block, got %q", ev.Blocked.Name)
	}
	if calls != 0 {
		t.Fatalf("later blocking guard should not run after a block, ran %d times", calls)
	}
}

func TestEvaluateAdvisoriesRunEvenAfterBlock(t *testing.T) {
	r := NewRegistry()
	r.Register(namedGuard("blocker", 1, true))
	r.Register(Guard{
		Name:     "reminder",
		Priority: 99,
		Class:    Advisory,
		Default:  PolicyAllow,
		Trigger:  func(*invocation.Invocation) bool { return true },
		Explain:  func(*invocation.Invocation) string { return "remember" },
	})

	ev := r.Evaluate(bashInv("anything"))
	if ev.Blocked == nil {
		t.Fatal("expected a block")
	}
	if len(ev.Advisories) != 1 || ev.Advisories[0].Message != "remember" {
		t.Fatalf("advisory should run despite the block, got %+v", ev.Advisories)
	}
}

func TestEvaluatePanickingTriggerBlocksFailClosed(t *testing.T) {
	r := NewRegistry()
	r.Register(Guard{
		Name:     "broken",
		Priority: 1,
		Trigger:  func(*invocation.Invocation) bool { panic("boom") },
		Explain:  func(*invocation.Invocation) string { return "unused" },
	})

	ev := r.Evaluate(bashInv("anything"))
	if ev.Blocked == nil {
		t.Fatal("a panicking trigger must block, not allow")
	}
	if !ev.TriggerFailed {
		t.Fatal("expected the block to be marked as a trigger failure")
	}
}

func TestEvaluateNoTriggersAllows(t *testing.T) {
	r := NewRegistry()
	r.Register(namedGuard("quiet", 1, false))

	ev := r.Evaluate(bashInv("echo ok"))
	if ev.Blocked != nil {
		t.Fatalf("expected allow, blocked by %q", ev.Blocked.Name)
	}
}

func TestRegisterDefaultsClassAndPolicy(t *testing.T) {
	r := NewRegistry()
	r.Register(namedGuard("g", 1, false))

	g, ok := r.Lookup("g")
	if !ok {
		t.Fatal("lookup failed")
	}
	if g.Class != Blocking {
		t.Errorf("expected default class blocking, got %q", g.Class)
	}
	if g.Default != PolicyBlock {
		t.Errorf("expected default policy block, got %q", g.Default)
	}
}

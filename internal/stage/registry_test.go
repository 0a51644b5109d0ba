package stage

import (
	"context"
	"strings"
	"testing"
	"time"

	"tome/internal/catalog"
)

type stubHandler struct {
	enabled bool
}

func (s stubHandler) Enabled() bool                                    { return s.enabled }
func (s stubHandler) Prepare(context.Context, *catalog.Document) error { return nil }
func (s stubHandler) Execute(context.Context, *catalog.Document) error { return nil }
func (s stubHandler) HealthCheck(context.Context) Health               { return Healthy("stub") }

func testStage(name string, requires ...string) Registration {
	return Registration{
		Definition: Definition{Name: name, Requires: requires, MaxAttempts: 3},
		Handler:    stubHandler{enabled: true},
	}
}

func pipelineGraph(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(
		testStage("extract"),
		testStage("images"),
		testStage("tables", "extract"),
		testStage("classify", "extract"),
		testStage("embed", "extract"),
		testStage("partsmeta", "extract", "tables"),
		testStage("index", "classify", "partsmeta", "embed", "images"),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func state(result catalog.StageResult) *catalog.StageState {
	return &catalog.StageState{Result: result}
}

func TestNewRegistryOrdersTopologically(t *testing.T) {
	registry := pipelineGraph(t)

	got := strings.Join(registry.Names(), " ")
	want := "extract classify embed images tables partsmeta index"
	if got != want {
		t.Fatalf("unexpected order %q, want %q", got, want)
	}

	roots := strings.Join(registry.Roots(), " ")
	if roots != "extract images" {
		t.Fatalf("unexpected roots %q", roots)
	}
}

func TestNewRegistryRejectsBadGraphs(t *testing.T) {
	tests := []struct {
		name    string
		regs    []Registration
		wantErr string
	}{
		{
			name:    "empty",
			regs:    nil,
			wantErr: "no stages",
		},
		{
			name: "duplicate",
			regs: []Registration{
				testStage("extract"),
				testStage("extract"),
			},
			wantErr: "duplicate stage",
		},
		{
			name: "unknown prerequisite",
			regs: []Registration{
				testStage("extract"),
				testStage("tables", "extrct"),
			},
			wantErr: `unknown stage "extrct"`,
		},
		{
			name: "self prerequisite",
			regs: []Registration{
				testStage("extract", "extract"),
			},
			wantErr: "requires itself",
		},
		{
			name: "cycle",
			regs: []Registration{
				testStage("a", "c"),
				testStage("b", "a"),
				testStage("c", "b"),
			},
			wantErr: "dependency cycle involving a, b, c",
		},
		{
			name: "missing handler",
			regs: []Registration{
				{Definition: Definition{Name: "extract"}},
			},
			wantErr: "has no handler",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.regs...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestReadyStagesStartsAtRoots(t *testing.T) {
	registry := pipelineGraph(t)

	ready := registry.ReadyStages(time.Now(), nil)
	if got := strings.Join(ready, " "); got != "extract images" {
		t.Fatalf("unexpected ready set %q", got)
	}
}

func TestReadyStagesFollowsSatisfiedPrerequisites(t *testing.T) {
	registry := pipelineGraph(t)
	now := time.Now()

	states := map[string]*catalog.StageState{
		"extract": state(catalog.ResultSuccess),
	}
	ready := registry.ReadyStages(now, states)
	if got := strings.Join(ready, " "); got != "classify embed images tables" {
		t.Fatalf("unexpected ready set %q", got)
	}

	// A skipped prerequisite satisfies dependents the same as success.
	states = map[string]*catalog.StageState{
		"extract":   state(catalog.ResultSuccess),
		"images":    state(catalog.ResultSuccess),
		"tables":    state(catalog.ResultSuccess),
		"classify":  state(catalog.ResultSuccess),
		"embed":     state(catalog.ResultSkipped),
		"partsmeta": state(catalog.ResultSuccess),
	}
	ready = registry.ReadyStages(now, states)
	if got := strings.Join(ready, " "); got != "index" {
		t.Fatalf("unexpected ready set %q", got)
	}
}

func TestReadyStagesExcludesRunningAndTerminal(t *testing.T) {
	registry := pipelineGraph(t)
	now := time.Now()

	states := map[string]*catalog.StageState{
		"extract": state(catalog.ResultRunning),
		"images":  state(catalog.ResultPermanent),
	}
	if ready := registry.ReadyStages(now, states); len(ready) != 0 {
		t.Fatalf("expected empty ready set, got %v", ready)
	}
}

func TestReadyStagesHonorsRetrySchedule(t *testing.T) {
	registry := pipelineGraph(t)
	now := time.Now()

	future := now.Add(time.Minute)
	states := map[string]*catalog.StageState{
		"extract": {Result: catalog.ResultRetryable, Attempts: 1, NextAttemptAt: &future},
	}
	ready := registry.ReadyStages(now, states)
	if got := strings.Join(ready, " "); got != "images" {
		t.Fatalf("expected only images while extract backs off, got %q", got)
	}

	past := now.Add(-time.Minute)
	states["extract"].NextAttemptAt = &past
	ready = registry.ReadyStages(now, states)
	if got := strings.Join(ready, " "); got != "extract images" {
		t.Fatalf("expected extract due again, got %q", got)
	}
}

func TestDependentsReturnsTransitiveClosure(t *testing.T) {
	registry := pipelineGraph(t)

	tests := []struct {
		stage string
		want  string
	}{
		{"extract", "classify embed tables partsmeta index"},
		{"tables", "partsmeta index"},
		{"images", "index"},
		{"index", ""},
	}
	for _, tc := range tests {
		got := strings.Join(registry.Dependents(tc.stage), " ")
		if got != tc.want {
			t.Fatalf("Dependents(%q) = %q, want %q", tc.stage, got, tc.want)
		}
	}
}

func TestAllSatisfiedAndAllTerminal(t *testing.T) {
	registry := pipelineGraph(t)

	states := map[string]*catalog.StageState{
		"extract":   state(catalog.ResultSuccess),
		"images":    state(catalog.ResultSuccess),
		"tables":    state(catalog.ResultSuccess),
		"classify":  state(catalog.ResultSuccess),
		"embed":     state(catalog.ResultSkipped),
		"partsmeta": state(catalog.ResultSuccess),
		"index":     state(catalog.ResultSuccess),
	}
	if !registry.AllSatisfied(states) {
		t.Fatal("expected all stages satisfied")
	}
	if !registry.AllTerminal(states) {
		t.Fatal("expected all stages terminal")
	}

	states["index"] = state(catalog.ResultBlocked)
	if registry.AllSatisfied(states) {
		t.Fatal("blocked stage must not count as satisfied")
	}
	if !registry.AllTerminal(states) {
		t.Fatal("blocked stage is still terminal")
	}

	delete(states, "index")
	if registry.AllTerminal(states) {
		t.Fatal("missing state row must not count as terminal")
	}
}

func TestDefinitionLookupAndDefaults(t *testing.T) {
	registry, err := NewRegistry(Registration{
		Definition: Definition{Name: "  extract  ", MaxAttempts: 2, RetryBackoff: 5 * time.Second},
		Handler:    stubHandler{enabled: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	def, ok := registry.Definition("extract")
	if !ok {
		t.Fatal("expected definition for trimmed name")
	}
	if def.DisplayName != "extract" {
		t.Fatalf("expected display name fallback, got %q", def.DisplayName)
	}
	if def.MaxAttempts != 2 || def.RetryBackoff != 5*time.Second {
		t.Fatalf("unexpected budget %+v", def)
	}
	if registry.Handler("extract") == nil {
		t.Fatal("expected non-nil handler")
	}
}

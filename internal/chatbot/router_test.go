package chatbot

import (
	"regexp"
	"testing"

	"dingd/pkg/types"
)

// registry with H1 (/help, priority 0) and H2 (catch-all, priority 1).
func helpRegistry() *Registry {
	r := NewRegistry()
	r.Register(Descriptor{Name: "H2", Priority: 1})
	r.Register(Descriptor{Name: "H1", Priority: 0, Predicate: HasPrefix("/help")})
	return r
}

func TestSelect_TrimsAndMatchesPrefix(t *testing.T) {
	p := payload(" /help ")
	got := Select(helpRegistry(), testApp, p)
	if !equalNames(got, "H1") {
		t.Fatalf("expected [H1], got %v", names(got))
	}
	if p.Text.Content != "/help" {
		t.Fatalf("content not normalized: %q", p.Text.Content)
	}
}

func TestSelect_FallsBackToCatchAll(t *testing.T) {
	got := Select(helpRegistry(), testApp, payload("hello"))
	if !equalNames(got, "H2") {
		t.Fatalf("expected [H2], got %v", names(got))
	}
}

func TestSelect_EmptyAndBlankSelectNothing(t *testing.T) {
	reg := helpRegistry()
	cases := []*types.InboundPayload{
		nil,
		{SenderStaffID: "s"},
		payload(""),
		payload("   "),
		payload("\t\n"),
	}
	for i, p := range cases {
		if got := Select(reg, testApp, p); len(got) != 0 {
			t.Fatalf("case %d: expected no handlers, got %v", i, names(got))
		}
	}
}

func TestSelect_FallbackExcludedWhenPredicateMatches(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "catch1"})
	r.Register(Descriptor{Name: "ping", Predicate: Equals("ping")})
	r.Register(Descriptor{Name: "catch2"})
	got := Select(r, testApp, payload("ping"))
	if !equalNames(got, "ping") {
		t.Fatalf("fallbacks must not be included, got %v", names(got))
	}
	got = Select(r, testApp, payload("pong"))
	if !equalNames(got, "catch1", "catch2") {
		t.Fatalf("expected all catch-alls in registration order, got %v", names(got))
	}
}

func TestSelect_RegistrationOrderAmongMatches(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "late", Priority: 9, Predicate: Matches(regexp.MustCompile(`^/`))})
	r.Register(Descriptor{Name: "early", Priority: 1, Predicate: HasPrefix("/w")})
	got := Select(r, testApp, payload("/weather"))
	if !equalNames(got, "early", "late") {
		t.Fatalf("unexpected order: %v", names(got))
	}
}

func TestSelect_Idempotent(t *testing.T) {
	reg := helpRegistry()
	p := payload("  /help me ")
	first := Select(reg, testApp, p)
	second := Select(reg, testApp, p)
	if !equalNames(first, names(second)...) {
		t.Fatalf("selection changed: %v vs %v", names(first), names(second))
	}
	if p.Text.Content != "/help me" {
		t.Fatalf("unexpected content %q", p.Text.Content)
	}
}

func TestSelect_IgnoredApps(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "ops-only", Predicate: HasPrefix("/deploy"), IgnoredApps: []string{"helpdesk"}})
	r.Register(Descriptor{Name: "catch"})
	r.Register(Descriptor{Name: "catch-no-helpdesk", IgnoredApps: []string{"helpdesk"}})

	got := Select(r, types.App{Key: "k", Type: "ops"}, payload("/deploy"))
	if !equalNames(got, "ops-only") {
		t.Fatalf("ops app: got %v", names(got))
	}
	got = Select(r, testApp, payload("/deploy"))
	if !equalNames(got, "catch") {
		t.Fatalf("helpdesk app should fall back to non-ignoring catch-alls, got %v", names(got))
	}
}

func TestSelect_NothingApplicable(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "only", Predicate: Equals("x")})
	if got := Select(r, testApp, payload("y")); len(got) != 0 {
		t.Fatalf("expected empty, got %v", names(got))
	}
}

func TestSelect_PanickingPredicateIsNonMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "boom", Predicate: func(*types.InboundPayload) bool { panic("bad predicate") }})
	r.Register(Descriptor{Name: "ok", Predicate: Equals("x")})
	if got := Select(r, testApp, payload("x")); !equalNames(got, "ok") {
		t.Fatalf("expected [ok], got %v", names(got))
	}
}

package chatbot

import (
	"context"
	"testing"
)

func TestRegister_StableByPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "b1", Priority: 1})
	r.Register(Descriptor{Name: "a0", Priority: 0})
	r.Register(Descriptor{Name: "b2", Priority: 1})
	r.Register(Descriptor{Name: "c", Priority: 5})
	r.Register(Descriptor{Name: "a1", Priority: 0})
	if !equalNames(r.All(), "a0", "a1", "b1", "b2", "c") {
		t.Fatalf("unexpected order: %v", names(r.All()))
	}
}

func TestRegister_NoDeduplication(t *testing.T) {
	r := NewRegistry()
	d := Descriptor{Name: "dup", Predicate: Equals("x")}
	r.Register(d)
	r.Register(d)
	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}
	if got := r.Select(testApp, payload("x")); len(got) != 2 {
		t.Fatalf("expected both registrations selected, got %v", names(got))
	}
}

func TestRegister_FillsDefaultHooks(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "bare"})
	h := r.All()[0].Hooks
	if h.NotifyBeforeSend == nil || h.BeforeMessageSend == nil || h.BuildMessage == nil || h.AfterMessageSent == nil {
		t.Fatalf("expected all hooks defaulted: %+v", h)
	}
	msg, err := h.BuildMessage(context.Background(), testApp, payload("x"), nil)
	if msg != nil || err != nil {
		t.Fatalf("default BuildMessage must return nothing, got %v %v", msg, err)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{Name: "x"})
	all := r.All()
	all[0].Name = "mutated"
	if r.All()[0].Name != "x" {
		t.Fatalf("All must not expose internal state")
	}
}

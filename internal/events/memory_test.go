package events

import "testing"

func TestMemoryPublisher_RecordsInOrder(t *testing.T) {
	p := NewMemoryPublisher()
	p.Publish(New(EventDispatchStart, "d1", "app", nil))
	p.Publish(New(LevelDone, "d1", "app", map[string]any{"level": 0}))
	names := p.Names()
	if len(names) != 2 || names[0] != EventDispatchStart || names[1] != LevelDone {
		t.Fatalf("unexpected names: %v", names)
	}
	evts := p.Events()
	evts[0].Name = "mutated"
	if p.Events()[0].Name != EventDispatchStart {
		t.Fatalf("Events must return a copy")
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Fatalf("expected Noop for nil publisher")
	}
	p := NewMemoryPublisher()
	if OrNoop(p) != Publisher(p) {
		t.Fatalf("expected passthrough for non-nil publisher")
	}
}

func TestMulti(t *testing.T) {
	a, b := NewMemoryPublisher(), NewMemoryPublisher()
	p := Multi(a, nil, b)
	p.Publish(New(LevelDone, "d1", "app", nil))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected fan-out to both publishers")
	}
	if _, ok := Multi(nil).(Noop); !ok {
		t.Fatalf("expected Noop for no publishers")
	}
	if Multi(a) != Publisher(a) {
		t.Fatalf("single publisher should be returned as is")
	}
}

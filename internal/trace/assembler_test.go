package trace

import "testing"

func TestAssemblerDrainIsIdempotent(t *testing.T) {
	a := NewAssembler()
	a.Append(Event{Name: "one"})
	a.AppendAll([]Event{{Name: "two"}, {Name: "three"}})

	first := a.Drain()
	if got := namesOf(first); len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Fatalf("first Drain = %v", got)
	}
	second := a.Drain()
	if second == nil || len(second) != 0 {
		t.Fatalf("second Drain = %v, want empty slice", second)
	}
	a.Append(Event{Name: "late"})
	if a.Len() != 0 {
		t.Fatalf("Append after Drain was kept")
	}
}

func TestAssemblerEmptyDrain(t *testing.T) {
	if got := NewAssembler().Drain(); len(got) != 0 {
		t.Fatalf("Drain = %v", got)
	}
}

package data

import (
	"errors"
	"testing"
)

func newBase(t *testing.T) *BaseClassSnapshot {
	t.Helper()
	s, err := NewBaseClassSnapshot(greeterClass(), "app", true)
	if err != nil {
		t.Fatalf("base snapshot: %v", err)
	}
	return s
}

func TestDeltaBuilderNilBase(t *testing.T) {
	if _, err := NewClassDeltaBuilder(nil); err == nil {
		t.Fatalf("nil base accepted")
	}
}

func TestDeltaBuilderAddAndRemove(t *testing.T) {
	b, err := NewClassDeltaBuilder(newBase(t))
	if err != nil {
		t.Fatalf("builder: %v", err)
	}

	md, err := b.AddFakeMethod("greet", "(Ljava/lang/String;)Ljava/lang/String;", 0x0001)
	if err != nil {
		t.Fatalf("add fake method: %v", err)
	}
	if md.Kind != KindAdded {
		t.Fatalf("added method kind = %v", md.Kind)
	}
	if err := b.RemoveMethod("greet", "()Ljava/lang/String;"); err != nil {
		t.Fatalf("remove method: %v", err)
	}

	v, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(v.AddedMethods()) != 1 || len(v.RemovedMethods()) != 1 {
		t.Fatalf("delta sets: added=%d removed=%d", len(v.AddedMethods()), len(v.RemovedMethods()))
	}

	// Base snapshot untouched by the removal.
	if m, ok := v.Base().MethodOrConstructor("greet", "()Ljava/lang/String;"); !ok || m.Kind != KindNormal {
		t.Fatalf("base mutated by removal: ok=%v kind=%v", ok, m.Kind)
	}
}

func TestDeltaBuilderRejectsShadowing(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	var sv *StructuralViolationError

	if _, err := b.AddFakeMethod("greet", "()Ljava/lang/String;", 0); !errors.As(err, &sv) {
		t.Fatalf("shadowing normal method accepted: %v", err)
	}

	b, _ = NewClassDeltaBuilder(newBase(t))
	if _, err := b.AddFakeField("name", "Ljava/lang/String;", 0); !errors.As(err, &sv) {
		t.Fatalf("shadowing normal field accepted: %v", err)
	}
	if sv.Member != "name" {
		t.Fatalf("violation does not identify member: %q", sv.Member)
	}
}

func TestDeltaBuilderRejectsFinalMethodChanges(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	var sv *StructuralViolationError
	if err := b.RemoveMethod("id", "()I"); !errors.As(err, &sv) {
		t.Fatalf("final method removal accepted: %v", err)
	}
	// The violation poisons the builder: finalize must fail too.
	if _, err := b.Finalize(); err == nil {
		t.Fatalf("finalize succeeded after violation")
	}
}

func TestDeltaBuilderRejectsAddRemoveConflict(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	if err := b.RemoveField("count"); err != nil {
		t.Fatalf("remove field: %v", err)
	}
	var sv *StructuralViolationError
	if _, err := b.AddFakeField("count", "J", 0); !errors.As(err, &sv) {
		t.Fatalf("add after remove accepted: %v", err)
	}
}

func TestDeltaBuilderRejectsDuplicateAdd(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	if _, err := b.AddFakeMethod("ping", "()V", 0); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := b.AddFakeMethod("ping", "()V", 0); err == nil {
		t.Fatalf("duplicate add accepted")
	}
}

func TestDeltaBuilderConstructorCounts(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	c1, err := b.AddFakeConstructor("(I)V", 0x0001)
	if err != nil {
		t.Fatalf("first constructor: %v", err)
	}
	c2, err := b.AddFakeConstructor("(Ljava/lang/String;)V", 0x0001)
	if err != nil {
		t.Fatalf("second constructor: %v", err)
	}
	if c1.ConstructorCount != 1 || c2.ConstructorCount != 2 {
		t.Fatalf("counts not monotonic: %d, %d", c1.ConstructorCount, c2.ConstructorCount)
	}
	if SlotFor(c1) != SlotFor(c2) {
		t.Fatalf("added constructors must collapse onto one reserved slot")
	}
}

func TestDeltaBuilderSingleUse(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	if _, err := b.Finalize(); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := b.Finalize(); err == nil {
		t.Fatalf("second finalize succeeded")
	}
	if _, err := b.AddFakeMethod("late", "()V", 0); err == nil {
		t.Fatalf("add after finalize succeeded")
	}
}

func TestVersionDescriptorDisjointSets(t *testing.T) {
	b, _ := NewClassDeltaBuilder(newBase(t))
	if _, err := b.AddFakeMethod("ping", "()V", 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.RemoveMethod("greet", "()Ljava/lang/String;"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	v, err := b.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	added := map[string]bool{}
	for _, m := range v.AddedMethods() {
		added[m.Name+m.Descriptor] = true
	}
	for _, m := range v.RemovedMethods() {
		if added[m.Name+m.Descriptor] {
			t.Fatalf("member %s%s in both added and removed", m.Name, m.Descriptor)
		}
	}
}

package data

import (
	"reflect"
	"testing"

	"github.com/llchen223/fakereplace/internal/classfile"
)

func greeterClass() *classfile.ClassFile {
	return &classfile.ClassFile{
		Name:      "com.acme.Greeter",
		SuperName: "java.lang.Object",
		Fields: []classfile.FieldInfo{
			{Name: "name", Descriptor: "Ljava/lang/String;", AccessFlags: classfile.AccPrivate},
			{Name: "count", Descriptor: "I", AccessFlags: classfile.AccPrivate},
		},
		Methods: []classfile.MethodInfo{
			{Name: "<init>", Descriptor: "()V", AccessFlags: classfile.AccPublic},
			{Name: "greet", Descriptor: "()Ljava/lang/String;", AccessFlags: classfile.AccPublic},
			{Name: "id", Descriptor: "()I", AccessFlags: classfile.AccPublic,
				Attributes: []string{classfile.FinalMarkerAttribute}},
			{Name: AddedMethodName, Descriptor: AddedMethodDescriptor, AccessFlags: classfile.AccPublic | classfile.AccSynthetic},
			{Name: AddedStaticMethodName, Descriptor: AddedStaticMethodDescriptor, AccessFlags: classfile.AccStatic | classfile.AccSynthetic},
			{Name: "<init>", Descriptor: AddedConstructorDescriptor, AccessFlags: classfile.AccPublic | classfile.AccSynthetic},
		},
	}
}

func TestBaseSnapshotClassification(t *testing.T) {
	s, err := NewBaseClassSnapshot(greeterClass(), "app", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ClassName() != "com.acme.Greeter" || s.InternalName() != "com/acme/Greeter" {
		t.Fatalf("bad names: %s / %s", s.ClassName(), s.InternalName())
	}
	if !s.Replaceable() || s.Loader() != "app" {
		t.Fatalf("loader/replaceable not recorded")
	}

	greet, ok := s.MethodOrConstructor("greet", "()Ljava/lang/String;")
	if !ok || greet.Kind != KindNormal {
		t.Fatalf("greet: ok=%v kind=%v", ok, greet.Kind)
	}
	id, _ := s.MethodOrConstructor("id", "()I")
	if !id.Final {
		t.Fatalf("final marker not recorded")
	}
	if greet.Final {
		t.Fatalf("final marker leaked onto unmarked method")
	}

	for _, ref := range []MemberRef{
		{Name: AddedMethodName, Descriptor: AddedMethodDescriptor},
		{Name: AddedStaticMethodName, Descriptor: AddedStaticMethodDescriptor},
		{Name: "<init>", Descriptor: AddedConstructorDescriptor},
	} {
		m, ok := s.MethodOrConstructor(ref.Name, ref.Descriptor)
		if !ok || m.Kind != KindAddedSystem {
			t.Fatalf("reserved slot %s: ok=%v kind=%v", ref, ok, m.Kind)
		}
	}

	ctor, ok := s.MethodOrConstructor("<init>", "()V")
	if !ok || ctor.Kind != KindNormal {
		t.Fatalf("real constructor misclassified: %v", ctor.Kind)
	}
}

func TestBaseSnapshotFieldOrderIsLoadOrder(t *testing.T) {
	s, err := NewBaseClassSnapshot(greeterClass(), "app", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := s.Fields()
	if len(fields) != 2 || fields[0].Name != "name" || fields[1].Name != "count" {
		t.Fatalf("field layout order not preserved: %#v", fields)
	}
}

func TestBaseSnapshotIdempotent(t *testing.T) {
	a, err := NewBaseClassSnapshot(greeterClass(), "app", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewBaseClassSnapshot(greeterClass(), "app", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a.Methods(), b.Methods()) {
		t.Fatalf("method sets differ across identical constructions")
	}
	if !reflect.DeepEqual(a.Fields(), b.Fields()) {
		t.Fatalf("field lists differ across identical constructions")
	}
}

func TestBaseSnapshotMalformedInput(t *testing.T) {
	if _, err := NewBaseClassSnapshot(nil, "app", true); err == nil {
		t.Fatalf("nil class accepted")
	}
	if _, err := NewBaseClassSnapshot(&classfile.ClassFile{SuperName: "java.lang.Object"}, "app", true); err == nil {
		t.Fatalf("empty class name accepted")
	}
	if _, err := NewBaseClassSnapshot(&classfile.ClassFile{Name: "com.acme.X"}, "app", true); err == nil {
		t.Fatalf("missing superclass accepted")
	}
	// The root type is the one class allowed to have no superclass.
	if _, err := NewBaseClassSnapshot(&classfile.ClassFile{Name: "java.lang.Object"}, "boot", false); err != nil {
		t.Fatalf("root type rejected: %v", err)
	}

	dup := greeterClass()
	dup.Methods = append(dup.Methods, classfile.MethodInfo{Name: "greet", Descriptor: "()Ljava/lang/String;"})
	if _, err := NewBaseClassSnapshot(dup, "app", true); err == nil {
		t.Fatalf("duplicate method accepted")
	}
}

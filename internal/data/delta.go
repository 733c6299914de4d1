package data

import (
	"fmt"
	"math"
)

// ClassDeltaBuilder accumulates the structural changes of one pending
// redefinition relative to one base snapshot. A builder is single-use:
// Finalize either yields exactly one ClassVersionDescriptor or reports the
// first violation, and the builder is spent either way. A fresh builder is
// required for every redefinition attempt.
//
// The first violation poisons the builder: later calls keep failing and
// Finalize returns it, so nothing partially accumulated can ever escape into
// the registry.
type ClassDeltaBuilder struct {
	base *BaseClassSnapshot

	addedFields    map[string]FieldDescriptor
	addedMethods   map[methodKey]MethodDescriptor
	removedFields  map[string]FieldDescriptor
	removedMethods map[methodKey]MethodDescriptor

	ctorCount uint32
	finalized bool
	err       error
}

// NewClassDeltaBuilder anchors a builder to a known prior version. A nil
// base is a programming-contract violation in the caller.
func NewClassDeltaBuilder(base *BaseClassSnapshot) (*ClassDeltaBuilder, error) {
	if base == nil {
		return nil, fmt.Errorf("delta builder: nil base snapshot")
	}
	return &ClassDeltaBuilder{
		base:           base,
		addedFields:    make(map[string]FieldDescriptor),
		addedMethods:   make(map[methodKey]MethodDescriptor),
		removedFields:  make(map[string]FieldDescriptor),
		removedMethods: make(map[methodKey]MethodDescriptor),
	}, nil
}

// Base returns the snapshot this delta is anchored to.
func (b *ClassDeltaBuilder) Base() *BaseClassSnapshot { return b.base }

// AddFakeField records a field present in the new version that cannot become
// a real field on existing instances; it will only be reachable through the
// redirection path. Shadowing a real base field or re-adding the same name
// is rejected.
func (b *ClassDeltaBuilder) AddFakeField(name, typeDescriptor string, accessFlags int) (FieldDescriptor, error) {
	if err := b.usable(); err != nil {
		return FieldDescriptor{}, err
	}
	if existing, ok := b.base.Field(name); ok && (existing.Kind == KindNormal || existing.Kind == KindAddedSystem) {
		return FieldDescriptor{}, b.fail(violation(b.base.ClassName(), name, "fake field would shadow existing %s field", existing.Kind))
	}
	if _, dup := b.addedFields[name]; dup {
		return FieldDescriptor{}, b.fail(violation(b.base.ClassName(), name, "field added twice in one delta"))
	}
	if _, rem := b.removedFields[name]; rem {
		return FieldDescriptor{}, b.fail(violation(b.base.ClassName(), name, "field both added and removed in one delta"))
	}
	fd := FieldDescriptor{
		Name:           name,
		TypeDescriptor: typeDescriptor,
		ClassName:      b.base.ClassName(),
		AccessFlags:    accessFlags,
		Kind:           KindAdded,
	}
	b.addedFields[name] = fd
	return fd, nil
}

// AddFakeMethod records a method introduced by the new version. It will be
// dispatched through the reserved added-method slot.
func (b *ClassDeltaBuilder) AddFakeMethod(name, descriptor string, accessFlags int) (MethodDescriptor, error) {
	if err := b.usable(); err != nil {
		return MethodDescriptor{}, err
	}
	return b.addMethod(MethodDescriptor{
		Name:        name,
		Descriptor:  descriptor,
		ClassName:   b.base.ClassName(),
		AccessFlags: accessFlags,
		Kind:        KindAdded,
	})
}

// AddFakeConstructor records a constructor introduced by the new version.
// All added constructors collapse onto the single reserved added-constructor
// slot; each receives a monotonically increasing count so dispatch can tell
// them apart. The count is bounded by uint32: overflow fails the delta.
func (b *ClassDeltaBuilder) AddFakeConstructor(descriptor string, accessFlags int) (MethodDescriptor, error) {
	if err := b.usable(); err != nil {
		return MethodDescriptor{}, err
	}
	if b.ctorCount == math.MaxUint32 {
		return MethodDescriptor{}, b.fail(violation(b.base.ClassName(), "<init>"+descriptor, "added-constructor count overflow"))
	}
	b.ctorCount++
	return b.addMethod(MethodDescriptor{
		Name:             "<init>",
		Descriptor:       descriptor,
		ClassName:        b.base.ClassName(),
		AccessFlags:      accessFlags,
		Kind:             KindAdded,
		ConstructorCount: b.ctorCount,
	})
}

func (b *ClassDeltaBuilder) addMethod(md MethodDescriptor) (MethodDescriptor, error) {
	member := md.Name + md.Descriptor
	if existing, ok := b.base.MethodOrConstructor(md.Name, md.Descriptor); ok {
		if existing.Final {
			return MethodDescriptor{}, b.fail(violation(b.base.ClassName(), member, "cannot replace final method"))
		}
		if existing.Kind == KindNormal || existing.Kind == KindAddedSystem {
			return MethodDescriptor{}, b.fail(violation(b.base.ClassName(), member, "fake method would shadow existing %s method", existing.Kind))
		}
	}
	if _, dup := b.addedMethods[md.key()]; dup {
		return MethodDescriptor{}, b.fail(violation(b.base.ClassName(), member, "method added twice in one delta"))
	}
	if _, rem := b.removedMethods[md.key()]; rem {
		return MethodDescriptor{}, b.fail(violation(b.base.ClassName(), member, "method both added and removed in one delta"))
	}
	b.addedMethods[md.key()] = md
	return md, nil
}

// RemoveMethod re-tags an existing base method as removed. The base snapshot
// itself is untouched. Removing a final method, a non-base member, or a
// member already added in this delta is a violation.
func (b *ClassDeltaBuilder) RemoveMethod(name, descriptor string) error {
	if err := b.usable(); err != nil {
		return err
	}
	member := name + descriptor
	md, ok := b.base.MethodOrConstructor(name, descriptor)
	if !ok {
		return b.fail(violation(b.base.ClassName(), member, "removed method is not a base member"))
	}
	if md.Final {
		return b.fail(violation(b.base.ClassName(), member, "cannot remove final method"))
	}
	if _, added := b.addedMethods[md.key()]; added {
		return b.fail(violation(b.base.ClassName(), member, "method both added and removed in one delta"))
	}
	b.removedMethods[md.key()] = md.withKind(KindRemoved)
	return nil
}

// RemoveField re-tags an existing base field as removed.
func (b *ClassDeltaBuilder) RemoveField(name string) error {
	if err := b.usable(); err != nil {
		return err
	}
	fd, ok := b.base.Field(name)
	if !ok {
		return b.fail(violation(b.base.ClassName(), name, "removed field is not a base member"))
	}
	if _, added := b.addedFields[name]; added {
		return b.fail(violation(b.base.ClassName(), name, "field both added and removed in one delta"))
	}
	b.removedFields[name] = fd.withKind(KindRemoved)
	return nil
}

// Finalize produces the immutable class version descriptor from the base
// plus the accumulated delta. The builder is spent afterwards; a second
// Finalize and any accumulated violation both fail, and no partial
// descriptor is ever produced.
func (b *ClassDeltaBuilder) Finalize() (*ClassVersionDescriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.finalized {
		return nil, fmt.Errorf("delta builder for %s: already finalized", b.base.ClassName())
	}
	b.finalized = true
	return newVersionDescriptor(b.base, b.addedFields, b.addedMethods, b.removedFields, b.removedMethods), nil
}

func (b *ClassDeltaBuilder) usable() error {
	if b.err != nil {
		return b.err
	}
	if b.finalized {
		return fmt.Errorf("delta builder for %s: already finalized", b.base.ClassName())
	}
	return nil
}

// fail records the first violation so Finalize cannot succeed afterwards.
func (b *ClassDeltaBuilder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

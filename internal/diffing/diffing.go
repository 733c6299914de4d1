// Package diffing computes the structural delta between a class's base
// snapshot and a newly supplied definition of the same class. Members are
// classified by identity: same (name, descriptor) means unchanged (body
// changes are the runtime collaborator's business), identities only in the
// new definition become fake added members, identities only in the base
// become removed members. A definition identical to the base yields an empty
// delta.
package diffing

import (
	"fmt"

	"github.com/llchen223/fakereplace/internal/classfile"
	"github.com/llchen223/fakereplace/internal/data"
)

// Compute diffs the updated definition against the base and returns the
// finalized version descriptor. Structural violations (final-method contract
// breaks, shadowing, contradictory changes) surface as errors from the delta
// builder and no descriptor is produced.
func Compute(base *data.BaseClassSnapshot, updated *classfile.ClassFile) (*data.ClassVersionDescriptor, error) {
	if updated == nil {
		return nil, fmt.Errorf("diff %s: nil updated definition", base.ClassName())
	}
	if updated.Name != base.ClassName() {
		return nil, fmt.Errorf("diff %s: updated definition names %s", base.ClassName(), updated.Name)
	}

	builder, err := data.NewClassDeltaBuilder(base)
	if err != nil {
		return nil, err
	}

	if err := diffMethods(builder, base, updated); err != nil {
		return nil, err
	}
	if err := diffFields(builder, base, updated); err != nil {
		return nil, err
	}
	return builder.Finalize()
}

func diffMethods(b *data.ClassDeltaBuilder, base *data.BaseClassSnapshot, updated *classfile.ClassFile) error {
	// Removals first: base members absent from the new definition. Reserved
	// system slots belong to the engine, not to the class author, so their
	// absence from a source-level definition is not a removal.
	for _, m := range base.Methods() {
		if m.Kind == data.KindAddedSystem {
			continue
		}
		if _, ok := updated.Method(m.Name, m.Descriptor); !ok {
			if err := b.RemoveMethod(m.Name, m.Descriptor); err != nil {
				return err
			}
		}
	}
	// Then additions: new identities unknown to the base.
	for _, m := range updated.Methods {
		if data.IsReservedSlot(m) {
			continue
		}
		if _, ok := base.MethodOrConstructor(m.Name, m.Descriptor); ok {
			continue
		}
		var err error
		if m.IsConstructor() {
			_, err = b.AddFakeConstructor(m.Descriptor, m.AccessFlags)
		} else {
			_, err = b.AddFakeMethod(m.Name, m.Descriptor, m.AccessFlags)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func diffFields(b *data.ClassDeltaBuilder, base *data.BaseClassSnapshot, updated *classfile.ClassFile) error {
	for _, f := range base.Fields() {
		nf, ok := updated.Field(f.Name)
		if !ok {
			if err := b.RemoveField(f.Name); err != nil {
				return err
			}
			continue
		}
		// A retyped field would need an incompatible layout change; it can
		// be expressed neither as an in-place edit nor as remove+add (same
		// identity on both sides of the delta).
		if nf.Descriptor != f.TypeDescriptor {
			return &data.StructuralViolationError{
				ClassName: base.ClassName(),
				Member:    f.Name,
				Reason:    fmt.Sprintf("field type changed from %s to %s", f.TypeDescriptor, nf.Descriptor),
			}
		}
	}
	for _, f := range updated.Fields {
		if _, ok := base.Field(f.Name); ok {
			continue
		}
		if _, err := b.AddFakeField(f.Name, f.Descriptor, f.AccessFlags); err != nil {
			return err
		}
	}
	return nil
}

package data

import "sort"

// ClassVersionDescriptor is the authoritative structural description of a
// class as it behaves right now: the base snapshot plus the finalized
// added/removed member sets of the latest committed redefinition. It is
// immutable; a new redefinition supersedes it with a fresh descriptor rather
// than mutating it.
type ClassVersionDescriptor struct {
	base *BaseClassSnapshot

	addedFields    map[string]FieldDescriptor
	addedMethods   map[methodKey]MethodDescriptor
	removedFields  map[string]FieldDescriptor
	removedMethods map[methodKey]MethodDescriptor
}

// NewBaseVersion wraps a freshly loaded snapshot in an empty-delta version
// descriptor, the form stored in the registry at first load.
func NewBaseVersion(base *BaseClassSnapshot) *ClassVersionDescriptor {
	return newVersionDescriptor(base, nil, nil, nil, nil)
}

func newVersionDescriptor(
	base *BaseClassSnapshot,
	addedFields map[string]FieldDescriptor,
	addedMethods map[methodKey]MethodDescriptor,
	removedFields map[string]FieldDescriptor,
	removedMethods map[methodKey]MethodDescriptor,
) *ClassVersionDescriptor {
	v := &ClassVersionDescriptor{
		base:           base,
		addedFields:    make(map[string]FieldDescriptor, len(addedFields)),
		addedMethods:   make(map[methodKey]MethodDescriptor, len(addedMethods)),
		removedFields:  make(map[string]FieldDescriptor, len(removedFields)),
		removedMethods: make(map[methodKey]MethodDescriptor, len(removedMethods)),
	}
	for k, f := range addedFields {
		v.addedFields[k] = f
	}
	for k, m := range addedMethods {
		v.addedMethods[k] = m
	}
	for k, f := range removedFields {
		v.removedFields[k] = f
	}
	for k, m := range removedMethods {
		v.removedMethods[k] = m
	}
	return v
}

// Base returns the original snapshot this version is layered on.
func (v *ClassVersionDescriptor) Base() *BaseClassSnapshot { return v.base }

// ClassName returns the binary class name.
func (v *ClassVersionDescriptor) ClassName() string { return v.base.ClassName() }

// HasChanges reports whether this version differs structurally from its base.
func (v *ClassVersionDescriptor) HasChanges() bool {
	return len(v.addedFields)+len(v.addedMethods)+len(v.removedFields)+len(v.removedMethods) > 0
}

// Method resolves a method identity against this version: added members
// first, then removed, then the base. ok is false for members this class
// never had in any version.
func (v *ClassVersionDescriptor) Method(name, descriptor string) (MethodDescriptor, bool) {
	k := methodKey{name, descriptor}
	if m, ok := v.addedMethods[k]; ok {
		return m, true
	}
	if m, ok := v.removedMethods[k]; ok {
		return m, true
	}
	return v.base.MethodOrConstructor(name, descriptor)
}

// Field resolves a field name against this version.
func (v *ClassVersionDescriptor) Field(name string) (FieldDescriptor, bool) {
	if f, ok := v.addedFields[name]; ok {
		return f, true
	}
	if f, ok := v.removedFields[name]; ok {
		return f, true
	}
	return v.base.Field(name)
}

// AddedMethods returns the added methods in deterministic order.
func (v *ClassVersionDescriptor) AddedMethods() []MethodDescriptor {
	return sortedMethods(v.addedMethods)
}

// RemovedMethods returns the removed methods in deterministic order.
func (v *ClassVersionDescriptor) RemovedMethods() []MethodDescriptor {
	return sortedMethods(v.removedMethods)
}

// AddedFields returns the added fields sorted by name.
func (v *ClassVersionDescriptor) AddedFields() []FieldDescriptor {
	return sortedFields(v.addedFields)
}

// RemovedFields returns the removed fields sorted by name.
func (v *ClassVersionDescriptor) RemovedFields() []FieldDescriptor {
	return sortedFields(v.removedFields)
}

// EffectiveMethods returns the methods callers can currently reach: the base
// set minus removed members plus added ones, in deterministic order.
func (v *ClassVersionDescriptor) EffectiveMethods() []MethodDescriptor {
	out := make([]MethodDescriptor, 0, len(v.base.methods)+len(v.addedMethods))
	for k, m := range v.base.methods {
		if _, gone := v.removedMethods[k]; gone {
			continue
		}
		out = append(out, m)
	}
	for _, m := range v.addedMethods {
		out = append(out, m)
	}
	sortMethodSlice(out)
	return out
}

// EffectiveFields returns the currently reachable fields: base layout order
// first (minus removed), then added fields by name.
func (v *ClassVersionDescriptor) EffectiveFields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(v.base.fields)+len(v.addedFields))
	for _, f := range v.base.fields {
		if _, gone := v.removedFields[f.Name]; gone {
			continue
		}
		out = append(out, f)
	}
	out = append(out, sortedFields(v.addedFields)...)
	return out
}

func sortedMethods(m map[methodKey]MethodDescriptor) []MethodDescriptor {
	out := make([]MethodDescriptor, 0, len(m))
	for _, md := range m {
		out = append(out, md)
	}
	sortMethodSlice(out)
	return out
}

func sortMethodSlice(out []MethodDescriptor) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Descriptor < out[j].Descriptor
	})
}

func sortedFields(m map[string]FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(m))
	for _, fd := range m {
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

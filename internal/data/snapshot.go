package data

import (
	"fmt"
	"sort"

	"github.com/llchen223/fakereplace/internal/classfile"
)

// rootClassName is the only class allowed to have no superclass.
const rootClassName = "java.lang.Object"

// BaseClassSnapshot is everything there is to know about a class as it was
// originally loaded. It stores the original structure only; modifications
// are layered on top as class version descriptors, the snapshot itself is
// never mutated. Exactly one snapshot exists per (class name, loader) pair
// for the lifetime of that loader, so it is safe to share across goroutines
// without synchronization.
type BaseClassSnapshot struct {
	className    string
	internalName string
	superName    string
	loader       string
	replaceable  bool

	methods map[methodKey]MethodDescriptor
	fields  []FieldDescriptor // load order; field layout is load order
	fieldIx map[string]int
}

// NewBaseClassSnapshot builds the immutable snapshot from a parsed class
// structure. Every declared field and method is visited exactly once:
// reserved system slots are tagged ADDED_BY_SYSTEM, methods carrying the
// final marker attribute are recorded as final, everything else is NORMAL.
//
// Malformed input (nil class, empty name, missing superclass on a non-root
// type, duplicate members) is a contract violation in the calling
// collaborator and fails construction outright.
func NewBaseClassSnapshot(cf *classfile.ClassFile, loader string, replaceable bool) (*BaseClassSnapshot, error) {
	if cf == nil {
		return nil, fmt.Errorf("base snapshot: nil class structure")
	}
	if cf.Name == "" {
		return nil, fmt.Errorf("base snapshot: class name must be non-empty")
	}
	if cf.SuperName == "" && cf.Name != rootClassName {
		return nil, fmt.Errorf("base snapshot for %s: missing superclass name", cf.Name)
	}

	s := &BaseClassSnapshot{
		className:    cf.Name,
		internalName: classfile.InternalName(cf.Name),
		superName:    cf.SuperName,
		loader:       loader,
		replaceable:  replaceable,
		methods:      make(map[methodKey]MethodDescriptor, len(cf.Methods)),
		fields:       make([]FieldDescriptor, 0, len(cf.Fields)),
		fieldIx:      make(map[string]int, len(cf.Fields)),
	}

	for _, m := range cf.Methods {
		kind := KindNormal
		if IsReservedSlot(m) {
			kind = KindAddedSystem
		}
		md := MethodDescriptor{
			Name:        m.Name,
			Descriptor:  m.Descriptor,
			ClassName:   cf.Name,
			AccessFlags: m.AccessFlags,
			Kind:        kind,
			Final:       m.HasAttribute(classfile.FinalMarkerAttribute),
		}
		if _, dup := s.methods[md.key()]; dup {
			return nil, fmt.Errorf("base snapshot for %s: duplicate method %s%s", cf.Name, m.Name, m.Descriptor)
		}
		s.methods[md.key()] = md
	}

	for _, f := range cf.Fields {
		if _, dup := s.fieldIx[f.Name]; dup {
			return nil, fmt.Errorf("base snapshot for %s: duplicate field %s", cf.Name, f.Name)
		}
		s.fieldIx[f.Name] = len(s.fields)
		s.fields = append(s.fields, FieldDescriptor{
			Name:           f.Name,
			TypeDescriptor: f.Descriptor,
			ClassName:      cf.Name,
			AccessFlags:    f.AccessFlags,
			Kind:           KindNormal,
		})
	}
	return s, nil
}

// ClassName returns the binary class name.
func (s *BaseClassSnapshot) ClassName() string { return s.className }

// InternalName returns the slash-separated internal class name.
func (s *BaseClassSnapshot) InternalName() string { return s.internalName }

// SuperClassName returns the superclass binary name; empty for the root type.
func (s *BaseClassSnapshot) SuperClassName() string { return s.superName }

// Loader returns the identity of the defining loader.
func (s *BaseClassSnapshot) Loader() string { return s.loader }

// Replaceable reports whether the class is eligible for future replacement.
func (s *BaseClassSnapshot) Replaceable() bool { return s.replaceable }

// MethodOrConstructor returns the original method with the given identity.
func (s *BaseClassSnapshot) MethodOrConstructor(name, descriptor string) (MethodDescriptor, bool) {
	m, ok := s.methods[methodKey{name, descriptor}]
	return m, ok
}

// Field returns the original field with the given name.
func (s *BaseClassSnapshot) Field(name string) (FieldDescriptor, bool) {
	ix, ok := s.fieldIx[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[ix], true
}

// Methods returns the original method set in deterministic (name, descriptor)
// order.
func (s *BaseClassSnapshot) Methods() []MethodDescriptor {
	out := make([]MethodDescriptor, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Descriptor < out[j].Descriptor
	})
	return out
}

// Fields returns the original fields in declaration (layout) order.
func (s *BaseClassSnapshot) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

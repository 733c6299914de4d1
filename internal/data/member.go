// Package data holds the class-version metadata model: member descriptors
// with their classification, the immutable base snapshot of a class as first
// loaded, the per-redefinition delta builder and the finalized class version
// descriptor. Everything here is a value; all mutation happens by building
// new immutable versions, never by editing published ones.
package data

import (
	"fmt"

	"github.com/llchen223/fakereplace/internal/classfile"
)

// MemberKind classifies a member across class versions.
type MemberKind uint8

const (
	// KindNormal marks a member present in the original snapshot, unchanged.
	KindNormal MemberKind = iota
	// KindAddedSystem marks a reserved slot the engine injected at original
	// load time so later redefinitions have an attachment point.
	KindAddedSystem
	// KindAdded marks a member introduced by a later redefinition. It is not
	// a real structural member on instances; it is only reachable through
	// the registry redirection path.
	KindAdded
	// KindRemoved marks a member that existed in the original snapshot but
	// is absent from the current version.
	KindRemoved
)

func (k MemberKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindAddedSystem:
		return "added-by-system"
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	}
	return fmt.Sprintf("memberkind(%d)", uint8(k))
}

// FieldDescriptor describes one field of one class version.
// Identity is (Name, ClassName). Immutable after construction.
type FieldDescriptor struct {
	Name           string
	TypeDescriptor string
	ClassName      string
	AccessFlags    int
	Kind           MemberKind
}

func (f FieldDescriptor) String() string {
	return fmt.Sprintf("%s %s.%s", classfile.TypeName(f.TypeDescriptor), f.ClassName, f.Name)
}

// withKind returns a copy reclassified as k.
func (f FieldDescriptor) withKind(k MemberKind) FieldDescriptor {
	f.Kind = k
	return f
}

// MethodDescriptor describes one method or constructor of one class version.
// Identity is (Name, Descriptor).
//
// Final records the original final marker: a final method's contract can
// never be structurally replaced by a redefinition. ConstructorCount is only
// meaningful for added constructors: all of them collapse onto the single
// reserved added-constructor slot and are told apart at dispatch time by
// this count.
type MethodDescriptor struct {
	Name             string
	Descriptor       string
	ClassName        string
	AccessFlags      int
	Kind             MemberKind
	Final            bool
	ConstructorCount uint32
}

func (m MethodDescriptor) String() string {
	return fmt.Sprintf("%s.%s", m.ClassName, classfile.PrettyMethod(m.Name, m.Descriptor))
}

// IsStatic reports whether the method is static.
func (m MethodDescriptor) IsStatic() bool { return m.AccessFlags&classfile.AccStatic != 0 }

// IsConstructor reports whether the descriptor names a constructor.
func (m MethodDescriptor) IsConstructor() bool { return m.Name == classfile.ConstructorName }

func (m MethodDescriptor) withKind(k MemberKind) MethodDescriptor {
	m.Kind = k
	return m
}

// methodKey is the map identity of a method: name plus descriptor.
type methodKey struct {
	name string
	desc string
}

func (m MethodDescriptor) key() methodKey { return methodKey{m.Name, m.Descriptor} }

// MemberRef identifies a member in a resolution query. Field references
// leave Descriptor empty and set Field.
type MemberRef struct {
	Name       string
	Descriptor string
	Field      bool
}

func (r MemberRef) String() string {
	if r.Field {
		return r.Name
	}
	return r.Name + r.Descriptor
}

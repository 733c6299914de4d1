// Package classfile defines the raw structural description of a class as it
// arrives from the loader/discovery collaborator: class name, superclass,
// access flags and the declared member lists. It is the input shape for base
// snapshot construction and for redefinition requests.
//
// The types carry JSON tags so class definitions can be read from files by
// the planner CLI; inside a live agent the same structs are populated
// directly from the instrumentation hook.
package classfile

// Access flags, as found in a parsed class file.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccAbstract  = 0x0400
	AccSynthetic = 0x1000
)

// ConstructorName is the reserved member name every constructor carries.
const ConstructorName = "<init>"

// FinalMarkerAttribute marks a method whose contract must never be changed
// by a later redefinition. The instrumentation step stamps it onto methods
// that were final in the original class before the final flag is cleared for
// replacement purposes, so the engine can keep enforcing the contract.
const FinalMarkerAttribute = "fakereplace.finalMethod"

// FieldInfo describes one declared field.
type FieldInfo struct {
	Name        string `json:"name"`
	Descriptor  string `json:"descriptor"` // JVM type descriptor, e.g. "Ljava/lang/String;"
	AccessFlags int    `json:"accessFlags"`
}

// MethodInfo describes one declared method or constructor.
// Attributes holds class-file attribute names relevant to the engine
// (currently only FinalMarkerAttribute is consulted).
type MethodInfo struct {
	Name        string   `json:"name"`
	Descriptor  string   `json:"descriptor"` // JVM method descriptor, e.g. "(I)V"
	AccessFlags int      `json:"accessFlags"`
	Attributes  []string `json:"attributes,omitempty"`
}

// ClassFile is the parsed structural form of a single class.
// SuperName is empty only for the root type (java.lang.Object).
type ClassFile struct {
	Name        string       `json:"name"`      // binary name, e.g. "com.acme.Greeter"
	SuperName   string       `json:"superName"` // binary name of the superclass
	AccessFlags int          `json:"accessFlags"`
	Fields      []FieldInfo  `json:"fields,omitempty"`
	Methods     []MethodInfo `json:"methods,omitempty"`
}

// HasAttribute reports whether the method carries the named attribute.
func (m MethodInfo) HasAttribute(name string) bool {
	for _, a := range m.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// IsStatic reports whether the member's access flags include static.
func (m MethodInfo) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// IsConstructor reports whether the method is a constructor.
func (m MethodInfo) IsConstructor() bool { return m.Name == ConstructorName }

// Method returns the declared method with the given name and descriptor.
func (c *ClassFile) Method(name, descriptor string) (MethodInfo, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return MethodInfo{}, false
}

// Field returns the declared field with the given name.
func (c *ClassFile) Field(name string) (FieldInfo, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

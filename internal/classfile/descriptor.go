// Descriptor parsing and rendering for JVM type and method signatures.
//
// Descriptors follow the class-file grammar:
//
//	B C D F I J S Z        primitives
//	Lcom/acme/Foo;         object type
//	[I, [[Ljava/lang/Foo;  arrays
//	(params...)ret         method descriptor
//
// The helpers here parse and pretty-print them for plans, logs and error
// messages. They are deliberately strict: a malformed descriptor is an
// error, never a best-effort guess.

package classfile

import (
	"fmt"
	"strings"
)

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// InternalName converts a binary class name ("com.acme.Foo") to its internal
// form ("com/acme/Foo").
func InternalName(binary string) string {
	return strings.ReplaceAll(binary, ".", "/")
}

// BinaryName converts an internal class name back to dotted binary form.
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// ParseMethodDescriptor splits a method descriptor into its parameter type
// descriptors and return type descriptor.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, next, perr := readType(desc, i)
		if perr != nil {
			return nil, "", fmt.Errorf("malformed method descriptor %q: %w", desc, perr)
		}
		params = append(params, t)
		i = next
	}
	if i >= len(desc) || desc[i] != ')' {
		return nil, "", fmt.Errorf("malformed method descriptor %q: missing ')'", desc)
	}
	ret, next, perr := readType(desc, i+1)
	if perr != nil {
		return nil, "", fmt.Errorf("malformed method descriptor %q: %w", desc, perr)
	}
	if next != len(desc) {
		return nil, "", fmt.Errorf("malformed method descriptor %q: trailing data", desc)
	}
	return params, ret, nil
}

// ValidTypeDescriptor reports whether desc is a single well-formed field/type
// descriptor (no method descriptors).
func ValidTypeDescriptor(desc string) bool {
	if desc == "" {
		return false
	}
	_, next, err := readType(desc, 0)
	return err == nil && next == len(desc)
}

// TypeName renders a single type descriptor as a human-readable name:
// "Ljava/lang/String;" -> "java.lang.String", "[I" -> "int[]".
func TypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	var name string
	switch {
	case base == "":
		name = "?"
	case base[0] == 'L' && strings.HasSuffix(base, ";"):
		name = BinaryName(base[1 : len(base)-1])
	default:
		if n, ok := primitiveNames[base[0]]; ok && len(base) == 1 {
			name = n
		} else {
			name = base
		}
	}
	return name + strings.Repeat("[]", dims)
}

// PrettyMethod renders "greet" + "(Ljava/lang/String;)Ljava/lang/String;"
// as "java.lang.String greet(java.lang.String)". Falls back to the raw
// descriptor when it does not parse.
func PrettyMethod(name, desc string) string {
	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		return name + desc
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = TypeName(p)
	}
	return fmt.Sprintf("%s %s(%s)", TypeName(ret), name, strings.Join(names, ", "))
}

// readType consumes one type descriptor starting at i and returns it along
// with the index just past it.
func readType(desc string, i int) (string, int, error) {
	start := i
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return "", 0, fmt.Errorf("truncated type at offset %d", start)
	}
	switch c := desc[i]; {
	case c == 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated object type at offset %d", i)
		}
		i += end + 1
		return desc[start:i], i, nil
	default:
		if _, ok := primitiveNames[c]; !ok {
			return "", 0, fmt.Errorf("unknown type tag %q at offset %d", c, i)
		}
		return desc[start : i+1], i + 1, nil
	}
}

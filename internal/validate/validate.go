// Package validate performs lightweight validation of class structural input
// before it reaches snapshot construction or a replacement transaction. It
// is not a class-file verifier; it checks the structural and semantic
// constraints that commonly catch bad definitions, and aggregates every
// issue into a single error for better UX.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/llchen223/fakereplace/internal/classfile"
)

// ClassFile validates one class definition:
//
//   - Name and (except for the root type) SuperName must be non-empty binary
//     names without slashes or whitespace.
//   - Field descriptors must be well-formed type descriptors; field names
//     unique and non-empty.
//   - Method descriptors must parse; (name, descriptor) pairs unique.
//   - Access flags must not combine public with private/protected.
//
// Returns nil when everything looks fine, or a single aggregated error
// describing all the issues found.
func ClassFile(cf *classfile.ClassFile) error {
	if cf == nil {
		return errors.New("class definition is nil")
	}
	var errs errlist

	checkClassName(&errs, "name", cf.Name)
	if cf.SuperName == "" {
		if cf.Name != "java.lang.Object" {
			errs.add("superName must be non-empty for %s", cf.Name)
		}
	} else {
		checkClassName(&errs, "superName", cf.SuperName)
	}

	seenFields := make(map[string]struct{}, len(cf.Fields))
	for i, f := range cf.Fields {
		prefix := fmt.Sprintf("fields[%d] (%s)", i, f.Name)
		if strings.TrimSpace(f.Name) == "" {
			errs.add("%s: name must be non-empty", prefix)
		}
		if !classfile.ValidTypeDescriptor(f.Descriptor) {
			errs.add("%s: invalid type descriptor %q", prefix, f.Descriptor)
		}
		if _, dup := seenFields[f.Name]; dup {
			errs.add("%s: duplicate field name", prefix)
		} else if f.Name != "" {
			seenFields[f.Name] = struct{}{}
		}
		checkAccess(&errs, prefix, f.AccessFlags)
	}

	type mkey struct{ name, desc string }
	seenMethods := make(map[mkey]struct{}, len(cf.Methods))
	for i, m := range cf.Methods {
		prefix := fmt.Sprintf("methods[%d] (%s%s)", i, m.Name, m.Descriptor)
		if strings.TrimSpace(m.Name) == "" {
			errs.add("%s: name must be non-empty", prefix)
		}
		if _, _, err := classfile.ParseMethodDescriptor(m.Descriptor); err != nil {
			errs.add("%s: %v", prefix, err)
		}
		k := mkey{m.Name, m.Descriptor}
		if _, dup := seenMethods[k]; dup {
			errs.add("%s: duplicate method identity", prefix)
		} else {
			seenMethods[k] = struct{}{}
		}
		checkAccess(&errs, prefix, m.AccessFlags)
	}

	return errs.err()
}

func checkClassName(errs *errlist, what, name string) {
	switch {
	case strings.TrimSpace(name) == "":
		errs.add("%s must be non-empty", what)
	case strings.ContainsAny(name, "/ \t"):
		errs.add("%s must be a dotted binary name, got %q", what, name)
	}
}

func checkAccess(errs *errlist, prefix string, flags int) {
	if flags&classfile.AccPublic != 0 && flags&(classfile.AccPrivate|classfile.AccProtected) != 0 {
		errs.add("%s: conflicting visibility flags 0x%04x", prefix, flags)
	}
	if flags&classfile.AccPrivate != 0 && flags&classfile.AccProtected != 0 {
		errs.add("%s: conflicting visibility flags 0x%04x", prefix, flags)
	}
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(e.msgs, "\n"))
}

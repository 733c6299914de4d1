// Package report renders replacement plans for humans: per class, the
// classified member changes plus a unified diff of the member listings
// (original snapshot vs current effective version). It uses
// github.com/pmezard/go-difflib/difflib to produce classic unified output.
package report

import (
	"fmt"
	"sort"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/llchen223/fakereplace/internal/classfile"
	"github.com/llchen223/fakereplace/internal/data"
)

// Plan renders a plan for the given class versions. Output is deterministic:
// classes sorted by name, members sorted within each section.
func Plan(versions []*data.ClassVersionDescriptor) string {
	sorted := make([]*data.ClassVersionDescriptor, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ClassName() < sorted[j].ClassName() })

	var b strings.Builder
	for _, v := range sorted {
		writeClassPlan(&b, v)
	}
	return b.String()
}

func writeClassPlan(b *strings.Builder, v *data.ClassVersionDescriptor) {
	fmt.Fprintf(b, "class %s", v.ClassName())
	if !v.HasChanges() {
		b.WriteString(": no structural changes\n")
		return
	}
	b.WriteString(":\n")
	for _, m := range v.AddedMethods() {
		ref := "added method"
		if m.IsConstructor() {
			ref = fmt.Sprintf("added constructor #%d", m.ConstructorCount)
		}
		fmt.Fprintf(b, "  + %s (%s, via %s)\n",
			classfile.PrettyMethod(m.Name, m.Descriptor), ref, data.SlotFor(m))
	}
	for _, m := range v.RemovedMethods() {
		fmt.Fprintf(b, "  - %s (removed)\n", classfile.PrettyMethod(m.Name, m.Descriptor))
	}
	for _, f := range v.AddedFields() {
		fmt.Fprintf(b, "  + %s %s (added field, registry-backed)\n", classfile.TypeName(f.TypeDescriptor), f.Name)
	}
	for _, f := range v.RemovedFields() {
		fmt.Fprintf(b, "  - %s %s (removed field)\n", classfile.TypeName(f.TypeDescriptor), f.Name)
	}
	b.WriteString(MemberDiff(v))
}

// MemberDiff produces a unified diff of the member listing between the base
// snapshot and the current effective version of the class.
func MemberDiff(v *data.ClassVersionDescriptor) string {
	base := v.Base()
	old := memberListing(base.Fields(), base.Methods())
	now := memberListing(v.EffectiveFields(), v.EffectiveMethods())

	u := difflib.UnifiedDiff{
		A:        old,
		B:        now,
		FromFile: base.ClassName() + "@base",
		ToFile:   base.ClassName() + "@current",
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return ""
	}
	return s
}

// memberListing renders one line per member, newline-terminated for better
// unified hunks. Reserved system slots are engine plumbing and stay out of
// the listing.
func memberListing(fields []data.FieldDescriptor, methods []data.MethodDescriptor) []string {
	out := make([]string, 0, len(fields)+len(methods))
	for _, f := range fields {
		out = append(out, fmt.Sprintf("field %s %s\n", classfile.TypeName(f.TypeDescriptor), f.Name))
	}
	for _, m := range methods {
		if m.Kind == data.KindAddedSystem {
			continue
		}
		out = append(out, fmt.Sprintf("method %s\n", classfile.PrettyMethod(m.Name, m.Descriptor)))
	}
	return out
}

package data

import "github.com/llchen223/fakereplace/internal/classfile"

// Reserved system slots.
//
// At original load time the instrumentation step adds three synthetic members
// to every replaceable class: a dispatcher for added instance methods, one
// for added static methods, and an added-constructor variant. Their
// name+descriptor pairs form a closed, fixed protocol contract between this
// engine and the code-redefinition collaborator: snapshot construction tags
// them ADDED_BY_SYSTEM, and every later ADDED member redirects onto one of
// them. Changing any value here is a protocol break, not a tuning knob.
const (
	AddedMethodName       = "__fakereplace$added"
	AddedMethodDescriptor = "(I[Ljava/lang/Object;)Ljava/lang/Object;"

	AddedStaticMethodName       = "__fakereplace$addedStatic"
	AddedStaticMethodDescriptor = "(I[Ljava/lang/Object;)Ljava/lang/Object;"

	AddedConstructorDescriptor = "(I[Ljava/lang/Object;Lfakereplace/ConstructorArgs;)V"
)

// IsReservedSlot reports whether the given declared method is one of the
// three reserved system slots.
func IsReservedSlot(m classfile.MethodInfo) bool {
	switch {
	case m.Name == AddedMethodName && m.Descriptor == AddedMethodDescriptor:
		return true
	case m.Name == AddedStaticMethodName && m.Descriptor == AddedStaticMethodDescriptor:
		return true
	case m.Name == classfile.ConstructorName && m.Descriptor == AddedConstructorDescriptor:
		return true
	}
	return false
}

// SlotFor returns the reserved slot reference an added member dispatches
// through.
func SlotFor(m MethodDescriptor) MemberRef {
	switch {
	case m.IsConstructor():
		return MemberRef{Name: classfile.ConstructorName, Descriptor: AddedConstructorDescriptor}
	case m.IsStatic():
		return MemberRef{Name: AddedStaticMethodName, Descriptor: AddedStaticMethodDescriptor}
	default:
		return MemberRef{Name: AddedMethodName, Descriptor: AddedMethodDescriptor}
	}
}

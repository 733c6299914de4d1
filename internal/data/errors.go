package data

import "fmt"

// StructuralViolationError reports a redefinition change the engine cannot
// express: breaking a final method's contract, shadowing an existing member
// with a fake one, or contradictory add+remove of the same member. Any such
// violation aborts the whole pending transaction.
type StructuralViolationError struct {
	ClassName string
	Member    string // the offending member, rendered as name or name+descriptor
	Reason    string
}

func (e *StructuralViolationError) Error() string {
	return fmt.Sprintf("structural violation in %s: %s: %s", e.ClassName, e.Member, e.Reason)
}

func violation(className, member, format string, args ...any) *StructuralViolationError {
	return &StructuralViolationError{
		ClassName: className,
		Member:    member,
		Reason:    fmt.Sprintf(format, args...),
	}
}

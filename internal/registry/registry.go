// Package registry is the process-wide store of current class version
// descriptors and the member-resolution query used by the call-site rewriter.
//
// Access is read-mostly: every member lookup that the runtime cannot resolve
// natively goes through ResolveMember, while writes happen only when a
// replacement transaction commits. Readers are lock-free; the whole
// name-to-descriptor map is an atomically swapped immutable value, so a
// reader sees either the state before a batch or the state after it, never a
// half-applied batch. Writers are serialized by a single mutex held only for
// the copy-and-swap.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/llchen223/fakereplace/internal/data"
)

// ErrNotManaged is returned for classes the engine never observed. It is
// deliberately distinct from a removed-member resolution so callers can tell
// "nothing to redirect" apart from "deliberately removed".
var ErrNotManaged = errors.New("class not managed by the registry")

// UnavailableMemberError is the runtime failure for a removed member invoked
// through a call path with no compensating redirect.
type UnavailableMemberError struct {
	ClassName string
	Member    data.MemberRef
}

func (e *UnavailableMemberError) Error() string {
	return fmt.Sprintf("member %s.%s was removed by a class redefinition and is no longer available", e.ClassName, e.Member)
}

// ResolutionKind says how a member reference must be dispatched.
type ResolutionKind uint8

const (
	// ResolutionDirect means the runtime's own lookup is trusted.
	ResolutionDirect ResolutionKind = iota
	// ResolutionRedirect means the member only exists through the reserved
	// system slot named in the resolution target.
	ResolutionRedirect
	// ResolutionRemoved means the member was removed by a redefinition.
	ResolutionRemoved
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionDirect:
		return "direct"
	case ResolutionRedirect:
		return "redirect"
	case ResolutionRemoved:
		return "removed"
	}
	return fmt.Sprintf("resolution(%d)", uint8(k))
}

// Resolution is the answer to a member query. For redirects, Slot names the
// reserved system slot to dispatch through and ConstructorCount carries the
// added-constructor disambiguation (zero for anything else). Slot is unset
// for redirected fields, which are served from the registry-side store.
type Resolution struct {
	Kind             ResolutionKind
	Slot             data.MemberRef
	ConstructorCount uint32
}

// Registry maps class names to their current version descriptor.
type Registry struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[map[string]*data.ClassVersionDescriptor]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	empty := map[string]*data.ClassVersionDescriptor{}
	r.current.Store(&empty)
	return r
}

// Register stores the empty-delta base version for a freshly loaded class.
// Exactly one base exists per class; re-registering an already managed class
// is a loader-collaborator bug.
func (r *Registry) Register(base *data.BaseClassSnapshot) error {
	if base == nil {
		return fmt.Errorf("registry: nil base snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.current.Load()
	if _, exists := cur[base.ClassName()]; exists {
		return fmt.Errorf("registry: class %s already registered", base.ClassName())
	}
	next := cloneWith(cur, map[string]*data.ClassVersionDescriptor{
		base.ClassName(): data.NewBaseVersion(base),
	})
	r.current.Store(&next)
	return nil
}

// Lookup returns the current descriptor for the class, or ok=false when the
// class was never observed by the engine.
func (r *Registry) Lookup(className string) (*data.ClassVersionDescriptor, bool) {
	v, ok := (*r.current.Load())[className]
	return v, ok
}

// Publish atomically replaces the current descriptor of one class.
func (r *Registry) Publish(className string, v *data.ClassVersionDescriptor) {
	r.PublishAll(map[string]*data.ClassVersionDescriptor{className: v})
}

// PublishAll atomically replaces the descriptors of every class in the batch
// at once. Readers observe either none or all of the batch.
func (r *Registry) PublishAll(batch map[string]*data.ClassVersionDescriptor) {
	if len(batch) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := cloneWith(*r.current.Load(), batch)
	r.current.Store(&next)
}

// ResolveMember answers the core redirection query for the rewriter.
//
// NORMAL and ADDED_BY_SYSTEM members resolve DIRECT; ADDED members resolve
// REDIRECT onto their reserved slot; REMOVED members resolve as such, and
// Unavailable can be used to turn that into the caller-facing error. A
// member the registry never saw in any version also resolves DIRECT: the
// runtime's native lookup governs members we never touched.
func (r *Registry) ResolveMember(className string, ref data.MemberRef) (Resolution, error) {
	v, ok := r.Lookup(className)
	if !ok {
		return Resolution{}, fmt.Errorf("resolve %s.%s: %w", className, ref, ErrNotManaged)
	}
	if ref.Field {
		fd, ok := v.Field(ref.Name)
		if !ok {
			return Resolution{Kind: ResolutionDirect}, nil
		}
		return fieldResolution(fd), nil
	}
	md, ok := v.Method(ref.Name, ref.Descriptor)
	if !ok {
		return Resolution{Kind: ResolutionDirect}, nil
	}
	return methodResolution(md), nil
}

// Unavailable builds the unavailable-member error for a REMOVED resolution.
func Unavailable(className string, ref data.MemberRef) error {
	return &UnavailableMemberError{ClassName: className, Member: ref}
}

// View returns the current name-to-descriptor map: the exact immutable
// snapshot readers resolve against. The returned map must not be modified.
// Two members looked up through one view are guaranteed to come from the
// same publish generation.
func (r *Registry) View() map[string]*data.ClassVersionDescriptor {
	return *r.current.Load()
}

// ClassNames returns the managed class names in sorted order.
func (r *Registry) ClassNames() []string {
	cur := r.View()
	out := make([]string, 0, len(cur))
	for name := range cur {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func fieldResolution(fd data.FieldDescriptor) Resolution {
	switch fd.Kind {
	case data.KindAdded:
		return Resolution{Kind: ResolutionRedirect}
	case data.KindRemoved:
		return Resolution{Kind: ResolutionRemoved}
	default:
		return Resolution{Kind: ResolutionDirect}
	}
}

func methodResolution(md data.MethodDescriptor) Resolution {
	switch md.Kind {
	case data.KindAdded:
		return Resolution{
			Kind:             ResolutionRedirect,
			Slot:             data.SlotFor(md),
			ConstructorCount: md.ConstructorCount,
		}
	case data.KindRemoved:
		return Resolution{Kind: ResolutionRemoved}
	default:
		return Resolution{Kind: ResolutionDirect}
	}
}

func cloneWith(cur, batch map[string]*data.ClassVersionDescriptor) map[string]*data.ClassVersionDescriptor {
	next := make(map[string]*data.ClassVersionDescriptor, len(cur)+len(batch))
	for k, v := range cur {
		next[k] = v
	}
	for k, v := range batch {
		next[k] = v
	}
	return next
}

// Package replace implements the replacement transaction: the external
// protocol surface through which one or more (old class, new class) pairs
// are queued, diffed, validated and committed as a single all-or-nothing
// batch. Observers never see a partially updated class graph: either every
// pair validates and every class is published in one atomic registry swap,
// or nothing changes at all.
package replace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/llchen223/fakereplace/internal/classfile"
	"github.com/llchen223/fakereplace/internal/data"
	"github.com/llchen223/fakereplace/internal/diffing"
	"github.com/llchen223/fakereplace/internal/registry"
	"github.com/llchen223/fakereplace/internal/validate"
)

// Redefiner is the live code-redefinition collaborator. It receives the
// finalized descriptor after a successful publish and performs the actual
// in-place swap of member bodies and reserved-slot bindings inside the
// running process. It is called with no registry locks held.
type Redefiner interface {
	RedefineClass(ctx context.Context, version *data.ClassVersionDescriptor) error
}

// NopRedefiner satisfies Redefiner without touching anything. Used by the
// planner CLI and by tests.
type NopRedefiner struct{}

func (NopRedefiner) RedefineClass(context.Context, *data.ClassVersionDescriptor) error { return nil }

// ValidationError identifies the pair that made a batch unacceptable.
type ValidationError struct {
	ClassName string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("redefinition of %s rejected: %v", e.ClassName, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Option configures a transaction.
type Option func(*Transaction)

// WithLogger sets the transaction logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) { t.log = l }
}

// WithRedefiner sets the code-redefinition collaborator.
func WithRedefiner(r Redefiner) Option {
	return func(t *Transaction) { t.redefiner = r }
}

type pair struct {
	base    *data.BaseClassSnapshot
	updated *classfile.ClassFile
}

// Transaction accumulates redefinition pairs until Commit. Single-use:
// after Commit (successful or not) both Queue and Commit fail. Not safe for
// concurrent use; a transaction belongs to one caller.
type Transaction struct {
	id        uuid.UUID
	reg       *registry.Registry
	log       *slog.Logger
	redefiner Redefiner
	pending   []pair
	done      bool
}

// NewTransaction starts an empty transaction against the registry.
func NewTransaction(reg *registry.Registry, opts ...Option) *Transaction {
	t := &Transaction{
		id:        uuid.New(),
		reg:       reg,
		log:       slog.Default(),
		redefiner: NopRedefiner{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("txn", t.id.String())
	return t
}

// ID returns the transaction's correlation id.
func (t *Transaction) ID() uuid.UUID { return t.id }

// Queue adds one (old, new) pair to the batch. The base must be replaceable
// and the updated definition structurally valid; both are checked here so a
// hopeless batch fails as early as possible.
func (t *Transaction) Queue(base *data.BaseClassSnapshot, updated *classfile.ClassFile) error {
	if t.done {
		return errors.New("transaction already committed")
	}
	if base == nil {
		return errors.New("queue: nil base snapshot")
	}
	if !base.Replaceable() {
		return fmt.Errorf("queue: class %s was not loaded as replaceable", base.ClassName())
	}
	if err := validate.ClassFile(updated); err != nil {
		return &ValidationError{ClassName: base.ClassName(), Err: err}
	}
	t.pending = append(t.pending, pair{base: base, updated: updated})
	t.log.Debug("queued redefinition", "class", base.ClassName())
	return nil
}

// Validate diffs and validates every queued pair without publishing
// anything. The transaction stays usable for a later Commit, so a dry run
// and the real commit share one code path.
func (t *Transaction) Validate() ([]*data.ClassVersionDescriptor, error) {
	if t.done {
		return nil, errors.New("transaction already committed")
	}
	_, ordered, err := t.compute()
	return ordered, err
}

// Commit processes the whole batch as one unit: every pair is diffed and
// validated before anything is published, then all classes are published in
// a single atomic registry swap, and only then is each finalized descriptor
// handed to the code-redefinition collaborator.
//
// Any validation failure aborts the entire batch and leaves the registry
// exactly as it was; the returned error joins one ValidationError per
// offending pair. An abort is recoverable: the caller may correct the
// batch and retry on a fresh transaction.
func (t *Transaction) Commit(ctx context.Context) ([]*data.ClassVersionDescriptor, error) {
	if t.done {
		return nil, errors.New("transaction already committed")
	}
	t.done = true

	versions, ordered, err := t.compute()
	if err != nil {
		return nil, err
	}

	t.reg.PublishAll(versions)
	for _, v := range ordered {
		t.log.Info("published class version",
			"class", v.ClassName(),
			"addedMethods", len(v.AddedMethods()),
			"removedMethods", len(v.RemovedMethods()),
			"addedFields", len(v.AddedFields()),
			"removedFields", len(v.RemovedFields()))
	}

	// The registry already reflects the batch; the collaborator call happens
	// outside any lock and failures here are runtime swap failures, not
	// validation aborts.
	for _, v := range ordered {
		if err := t.redefiner.RedefineClass(ctx, v); err != nil {
			t.log.Error("code redefinition failed after publish", "class", v.ClassName(), "error", err)
			return ordered, fmt.Errorf("redefine %s: %w", v.ClassName(), err)
		}
	}
	return ordered, nil
}

// compute diffs every queued pair, collecting either the full descriptor set
// or every validation failure. Nothing partial: one bad pair fails the
// whole batch.
func (t *Transaction) compute() (map[string]*data.ClassVersionDescriptor, []*data.ClassVersionDescriptor, error) {
	versions := make(map[string]*data.ClassVersionDescriptor, len(t.pending))
	ordered := make([]*data.ClassVersionDescriptor, 0, len(t.pending))
	var failures []error
	for _, p := range t.pending {
		v, err := diffing.Compute(p.base, p.updated)
		if err != nil {
			failures = append(failures, &ValidationError{ClassName: p.base.ClassName(), Err: err})
			continue
		}
		versions[p.base.ClassName()] = v
		ordered = append(ordered, v)
	}
	if len(failures) > 0 {
		t.log.Warn("batch aborted, registry unchanged",
			"pairs", len(t.pending), "rejected", len(failures))
		return nil, nil, errors.Join(failures...)
	}
	return versions, ordered, nil
}
